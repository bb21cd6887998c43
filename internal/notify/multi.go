package notify

import "errors"

// Alerter is one alert delivery channel.
type Alerter interface {
	SendShapeChanged(source, route, detail string) error
	SendSourceFailing(source, route, kind, detail string) error
	SendSourceRecovered(source, route string, journeys int) error
}

// Multi delivers every alert to all of its alerters. One failing channel does
// not stop the others.
type Multi []Alerter

func (m Multi) SendShapeChanged(source, route, detail string) error {
	return m.each(func(a Alerter) error { return a.SendShapeChanged(source, route, detail) })
}

func (m Multi) SendSourceFailing(source, route, kind, detail string) error {
	return m.each(func(a Alerter) error { return a.SendSourceFailing(source, route, kind, detail) })
}

func (m Multi) SendSourceRecovered(source, route string, journeys int) error {
	return m.each(func(a Alerter) error { return a.SendSourceRecovered(source, route, journeys) })
}

func (m Multi) each(fn func(Alerter) error) error {
	var errs []error
	for _, a := range m {
		if err := fn(a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
