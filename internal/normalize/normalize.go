package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/danpilch/railscout/internal/journey"
)

// Result is the outcome of normalizing one raw result. Dropped holds one
// UpstreamShapeChanged error per row that could not be mapped.
type Result struct {
	Journeys []journey.Journey
	Dropped  []error
}

// Normalize maps raw into canonical journeys. A row that cannot be mapped is
// dropped without affecting the others; an error is returned only when the
// result as a whole no longer matches the mapping.
func Normalize(m Mapping, q journey.Query, raw journey.RawResult) (Result, error) {
	m = m.withDefaults()

	rows := raw.Rows
	if raw.JSON != nil {
		var err error
		rows, err = m.jsonRows(raw.Source, raw.JSON)
		if err != nil {
			return Result{}, err
		}
	}

	res := Result{Journeys: make([]journey.Journey, 0, len(rows))}
	for i, row := range rows {
		j, err := m.journey(q, row)
		if err != nil {
			res.Dropped = append(res.Dropped, journey.ShapeChanged(raw.Source, fmt.Sprintf("row %d: %v", i, err)))
			continue
		}
		j.Source = raw.Source
		res.Journeys = append(res.Journeys, j)
	}
	return res, nil
}

func (m Mapping) jsonRows(source string, body []byte) ([]journey.Fields, error) {
	if !gjson.ValidBytes(body) {
		return nil, journey.ShapeChanged(source, "response is not valid JSON")
	}
	list := gjson.GetBytes(body, m.Rows)
	if !list.Exists() {
		return nil, journey.ShapeChanged(source, fmt.Sprintf("missing %q in response", m.Rows))
	}
	if !list.IsArray() && !list.IsObject() {
		return nil, journey.ShapeChanged(source, fmt.Sprintf("%q is not a list", m.Rows))
	}

	var rows []journey.Fields
	list.ForEach(func(_, row gjson.Result) bool {
		rows = append(rows, m.fields(row))
		return true
	})
	return rows, nil
}

func (m Mapping) fields(row gjson.Result) journey.Fields {
	out := make(journey.Fields, len(m.Paths))
	for field, path := range m.Paths {
		v := row.Get(path)
		if !v.Exists() || v.Type == gjson.Null {
			continue
		}
		if v.IsArray() {
			var parts []string
			for _, el := range v.Array() {
				if el.Type != gjson.Null && el.String() != "" {
					parts = append(parts, el.String())
				}
			}
			if len(parts) == 0 {
				continue
			}
			out[string(field)] = strings.Join(parts, ",")
			continue
		}
		out[string(field)] = v.String()
	}
	return out
}

func (m Mapping) journey(q journey.Query, row journey.Fields) (journey.Journey, error) {
	var j journey.Journey

	depText, ok := row[string(FieldDeparture)]
	if !ok {
		return j, fmt.Errorf("departure missing")
	}
	arrText, ok := row[string(FieldArrival)]
	if !ok {
		return j, fmt.Errorf("arrival missing")
	}

	var err error
	j.Departure, err = m.parseTime(q, depText)
	if err != nil {
		return j, fmt.Errorf("departure: %w", err)
	}
	j.Arrival, err = m.parseTime(q, arrText)
	if err != nil {
		return j, fmt.Errorf("arrival: %w", err)
	}
	if m.TimeLayout == ClockLayout {
		for j.Arrival.Before(j.Departure) {
			j.Arrival = j.Arrival.AddDate(0, 0, 1)
		}
	}
	if j.Arrival.Before(j.Departure) {
		return j, fmt.Errorf("arrival %s before departure %s", j.Arrival, j.Departure)
	}

	computed := j.Arrival.Sub(j.Departure)
	duration := computed
	if text, ok := row[string(FieldDuration)]; ok {
		if d, err := m.ParseDuration(text); err == nil && absDuration(d-computed) <= DurationTolerance {
			duration = d
		}
	}
	j.Duration = &duration

	if text, ok := row[string(FieldChanges)]; ok {
		if n, err := m.ParseChanges(text); err == nil {
			j.Changes = &n
		}
	}

	if text, ok := row[string(FieldProducts)]; ok {
		j.Products = m.SplitProducts(text)
	}

	if text, ok := row[string(FieldPrice)]; ok && strings.TrimSpace(text) != "" {
		if p, err := m.ParsePrice(text); err == nil {
			if cur, ok := row[string(FieldCurrency)]; ok && p.Currency == "" {
				p.Currency = strings.ToUpper(strings.TrimSpace(cur))
			}
			j.Price = &p
		}
	}

	return j, nil
}

func (m Mapping) location(q journey.Query) *time.Location {
	if m.Location != nil {
		return m.Location
	}
	return q.Departure.Location()
}

func (m Mapping) parseTime(q journey.Query, text string) (time.Time, error) {
	loc := m.location(q)
	if m.TimeLayout == ClockLayout {
		hour, minute, err := parseClock(text)
		if err != nil {
			return time.Time{}, err
		}
		day := q.Departure.In(loc)
		return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc), nil
	}
	return time.ParseInLocation(m.TimeLayout, strings.TrimSpace(text), loc)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
