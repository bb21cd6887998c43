package journey

import (
	"fmt"
	"strings"
	"time"
)

// Station is a physical station as the caller names it. Refs holds the
// backend-specific locator for each source id; sources do not share them.
type Station struct {
	Name string
	Refs map[string]string
}

// Ref returns the locator this station has for a source, if any.
func (s Station) Ref(sourceID string) (string, bool) {
	ref, ok := s.Refs[sourceID]
	return ref, ok && ref != ""
}

type PassengerType string

const (
	PassengerAdult PassengerType = "adult"
	PassengerChild PassengerType = "child"
)

type Passenger struct {
	Type  PassengerType
	Count int
}

// DefaultPassengers is a single adult, which is what every upstream assumes
// when no composition is given.
func DefaultPassengers() []Passenger {
	return []Passenger{{Type: PassengerAdult, Count: 1}}
}

// Query asks for journeys departing from Origin to Destination at or after Departure.
type Query struct {
	Origin      Station
	Destination Station
	Departure   time.Time
	Passengers  []Passenger
}

// Validate reports an InvalidQuery error when the query cannot be sent to any source.
func (q Query) Validate() error {
	origin := strings.TrimSpace(q.Origin.Name)
	destination := strings.TrimSpace(q.Destination.Name)

	if origin == "" || destination == "" {
		return InvalidQuery("", "origin and destination are required")
	}
	if strings.EqualFold(origin, destination) {
		return InvalidQuery("", "origin and destination must differ")
	}
	if q.Departure.IsZero() {
		return InvalidQuery("", "departure date is required")
	}
	for _, p := range q.Passengers {
		if p.Count <= 0 {
			return InvalidQuery("", fmt.Sprintf("passenger count for %s must be positive", p.Type))
		}
	}
	return nil
}

// PassengerCount is the total number of travellers, defaulting to one.
func (q Query) PassengerCount() int {
	if len(q.Passengers) == 0 {
		return 1
	}
	total := 0
	for _, p := range q.Passengers {
		total += p.Count
	}
	return total
}

var departureLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseDeparture parses a caller supplied departure. A bare date means midnight
// in loc; layouts without an offset are read in loc.
func ParseDeparture(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty departure")
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, layout := range departureLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid departure %q", s)
}
