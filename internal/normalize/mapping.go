// Package normalize turns adapter specific raw results into canonical journeys.
package normalize

import (
	"time"

	"github.com/danpilch/railscout/internal/journey"
)

// Field names a canonical journey field. Browser adapters key their extracted
// rows by these names; JSON mappings point each one at a path.
type Field string

const (
	FieldDeparture Field = "departure"
	FieldArrival   Field = "arrival"
	FieldDuration  Field = "duration"
	FieldChanges   Field = "changes"
	FieldProducts  Field = "products"
	FieldPrice     Field = "price"
	FieldCurrency  Field = "currency"
)

// ClockLayout marks a mapping whose times carry no date. They are anchored on
// the query's departure day, and an arrival earlier than the departure rolls
// over to the next day.
const ClockLayout = "15:04"

// DurationTolerance is how far a source's own duration may drift from
// arrival minus departure before the computed value replaces it.
const DurationTolerance = 5 * time.Minute

// Mapping is declared once per adapter and tells the normalizer where each
// canonical field lives and how to read it.
type Mapping struct {
	// Rows is the gjson path of the journey list in a JSON result. Objects are
	// iterated by value.
	Rows string
	// Paths maps canonical fields to gjson paths relative to a row. Empty for
	// browser sources, whose rows are already keyed by Field.
	Paths map[Field]string

	TimeLayout string
	// Location for times without an offset; nil means the query's location.
	Location *time.Location

	ParseDuration func(string) (time.Duration, error)
	ParseChanges  func(string) (int, error)
	ParsePrice    func(string) (journey.Price, error)
	SplitProducts func(string) []string
}

func (m Mapping) withDefaults() Mapping {
	if m.TimeLayout == "" {
		m.TimeLayout = time.RFC3339
	}
	if m.ParseDuration == nil {
		m.ParseDuration = ParseDurationText
	}
	if m.ParseChanges == nil {
		m.ParseChanges = ParseChangesText
	}
	if m.ParsePrice == nil {
		m.ParsePrice = ParseMoney
	}
	if m.SplitProducts == nil {
		m.SplitProducts = SplitProducts
	}
	return m
}
