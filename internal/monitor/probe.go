package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/railscout/internal/config"
	"github.com/danpilch/railscout/internal/journey"
)

const statusOK = "ok"

// Acquirer runs one query against one source.
type Acquirer interface {
	Acquire(ctx context.Context, q journey.Query, sourceID string) ([]journey.Journey, error)
}

type Stations interface {
	Lookup(name string) journey.Station
}

// Alerter delivers source health alerts.
type Alerter interface {
	SendShapeChanged(source, route, detail string) error
	SendSourceFailing(source, route, kind, detail string) error
	SendSourceRecovered(source, route string, journeys int) error
}

// SourceMonitor runs canary queries and alerts when a source changes state.
// A source that keeps failing the same way alerts once.
type SourceMonitor struct {
	acquirer Acquirer
	stations Stations
	notifier Alerter
	location *time.Location
	logger   *logrus.Logger
	now      func() time.Time

	mu         sync.Mutex
	lastStatus map[string]string
}

func NewSourceMonitor(acquirer Acquirer, stations Stations, notifier Alerter, location *time.Location, logger *logrus.Logger) *SourceMonitor {
	if location == nil {
		location = time.UTC
	}
	return &SourceMonitor{
		acquirer:   acquirer,
		stations:   stations,
		notifier:   notifier,
		location:   location,
		logger:     logger,
		now:        time.Now,
		lastStatus: make(map[string]string),
	}
}

func (m *SourceMonitor) ResetNotificationState() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastStatus = make(map[string]string)
}

func routeName(r config.ProbeRoute) string {
	return fmt.Sprintf("%s -> %s", r.Origin, r.Destination)
}

// Query builds the canary query for route: the departure is midnight
// DaysAhead days from now.
func (m *SourceMonitor) Query(route config.ProbeRoute) journey.Query {
	day := m.now().In(m.location).AddDate(0, 0, route.DaysAhead)
	return journey.Query{
		Origin:      m.stations.Lookup(route.Origin),
		Destination: m.stations.Lookup(route.Destination),
		Departure:   time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, m.location),
		Passengers:  journey.DefaultPassengers(),
	}
}

// CheckRoute probes one route. Acquisition failures are the observed state,
// not errors; only a failed alert is returned.
func (m *SourceMonitor) CheckRoute(ctx context.Context, route config.ProbeRoute) error {
	if !route.IsActiveDay(m.now().In(m.location).Weekday()) {
		return nil
	}

	name := routeName(route)
	journeys, err := m.acquirer.Acquire(ctx, m.Query(route), route.Source)

	status := statusOK
	var kind journey.Kind
	if err != nil {
		status = "internal"
		if e, ok := journey.AsError(err); ok {
			kind = e.Kind
			status = e.Kind.String()
		}
	}

	key := route.Source + "|" + name
	m.mu.Lock()
	last, seen := m.lastStatus[key]
	m.lastStatus[key] = status
	m.mu.Unlock()

	fields := logrus.Fields{
		"source":   route.Source,
		"route":    name,
		"status":   status,
		"journeys": len(journeys),
	}
	if err != nil {
		fields["error"] = err
		m.logger.WithFields(fields).Warn("source probe failed")
	} else {
		m.logger.WithFields(fields).Info("source probe")
	}

	if seen && last == status {
		return nil
	}
	if !seen && status == statusOK {
		return nil
	}

	switch {
	case status == statusOK:
		return m.notifier.SendSourceRecovered(route.Source, name, len(journeys))
	case kind == journey.KindUpstreamShapeChanged:
		return m.notifier.SendShapeChanged(route.Source, name, err.Error())
	default:
		return m.notifier.SendSourceFailing(route.Source, name, status, err.Error())
	}
}
