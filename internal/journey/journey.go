package journey

import "time"

// Journey is the source independent record returned to callers. Optional
// fields are nil when the source did not provide them.
type Journey struct {
	Source    string
	Departure time.Time
	Arrival   time.Time
	Duration  *time.Duration
	Changes   *int
	Products  []string
	Price     *Price
}

type Price struct {
	Amount   float64
	Currency string
}

// Fields is one scraped or extracted result row. A missing key means the
// field was not found, which is different from an empty value.
type Fields map[string]string

// RawResult is what an adapter hands to the normalizer. Request adapters fill
// JSON, browser adapters fill Rows.
type RawResult struct {
	Source string
	JSON   []byte
	Rows   []Fields
}
