package browser

import (
	"time"

	"github.com/danpilch/railscout/internal/normalize"
)

// Input is a form field filled by clicking it, pressing PreKeys, typing and
// then pressing Confirm after the page has settled. With PreKeys the text
// goes to whatever element has focus by then.
type Input struct {
	Selector string
	PreKeys  []Key
	Confirm  Key
}

// Extract locates one field inside a result row. All joins the text of every
// match with commas; otherwise the Index-th match is used.
type Extract struct {
	Selector string
	Index    int
	All      bool
}

// Timeouts bound the individual transitions of a run.
type Timeouts struct {
	Navigation time.Duration
	Element    time.Duration
	Results    time.Duration
}

// Site scripts one booking website.
type Site struct {
	ID  string
	URL string

	Origin      Input
	Destination Input
	Date        Input
	DateLayout  string
	// Location is the timezone the site's form and result times are in.
	Location *time.Location
	Submit      string

	Rows string
	// NoResults, when set, is the element the site renders instead of rows
	// for a search without connections.
	NoResults string
	Fields    map[normalize.Field]Extract

	Timeouts    Timeouts
	SettleDelay time.Duration

	Mapping normalize.Mapping
}

var (
	berlin = mustLoad("Europe/Berlin")
	london = mustLoad("Europe/London")
)

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// location falls back to UTC for sites that do not declare one.
func (s Site) location() *time.Location {
	if s.Location == nil {
		return time.UTC
	}
	return s.Location
}

// BahnExpert scripts the bahn.expert routing page.
var BahnExpert = Site{
	ID:          "bahn-expert",
	URL:         "https://bahn.expert/routing",
	Origin:      Input{Selector: "#routingStartSearch-input", Confirm: KeyEnter},
	Destination: Input{Selector: "#routingDestinationSearch-input", Confirm: KeyEnter},
	Date:        Input{Selector: `[data-testid="routingDatePicker"]`},
	DateLayout:  "02.01.2006 15:04",
	Location:    berlin,
	Submit:      `[data-testid="search"]`,
	Rows:        `[data-testid^="Route-"]`,
	Fields: map[normalize.Field]Extract{
		normalize.FieldDeparture: {Selector: `[data-testid="timeToDisplay"]`, Index: 0},
		normalize.FieldArrival:   {Selector: `[data-testid="timeToDisplay"]`, Index: 1},
		normalize.FieldDuration:  {Selector: "span:nth-of-type(3)"},
		normalize.FieldChanges:   {Selector: "span:nth-of-type(4)"},
		normalize.FieldProducts:  {Selector: "span.css-1skz62b", All: true},
	},
	Timeouts: Timeouts{
		Navigation: 60 * time.Second,
		Element:    10 * time.Second,
		Results:    20 * time.Second,
	},
	SettleDelay: 500 * time.Millisecond,
	Mapping:     normalize.Mapping{TimeLayout: normalize.ClockLayout, Location: berlin},
}

// TrainlineWeb scripts the thetrainline.com search form.
var TrainlineWeb = Site{
	ID:          "trainline-web",
	URL:         "https://www.thetrainline.com/",
	Origin:      Input{Selector: `[data-testid="jsf-origin"]`, Confirm: KeyEnter},
	Destination: Input{Selector: `[data-testid="jsf-destination"]`, Confirm: KeyEnter},
	Date:        Input{Selector: `[data-testid="jsf-outbound-time"]`, PreKeys: []Key{KeyTab}, Confirm: KeyEnter},
	DateLayout:  "02/01/2006",
	Location:    london,
	Submit:      `[data-testid="jsf-submit"]`,
	Rows:        `[data-testid="outbound-journey-summary"]`,
	Fields: map[normalize.Field]Extract{
		normalize.FieldDeparture: {Selector: `[data-testid="departure-time"]`},
		normalize.FieldArrival:   {Selector: `[data-testid="arrival-time"]`},
		normalize.FieldDuration:  {Selector: `[data-testid="duration"]`},
		normalize.FieldPrice:     {Selector: `[data-testid="fare-button-price"]`},
	},
	Timeouts: Timeouts{
		Navigation: 60 * time.Second,
		Element:    10 * time.Second,
		Results:    15 * time.Second,
	},
	SettleDelay: 500 * time.Millisecond,
	Mapping:     normalize.Mapping{TimeLayout: normalize.ClockLayout, Location: london},
}

// Sites lists the built-in site scripts by id.
func Sites() map[string]Site {
	return map[string]Site{
		BahnExpert.ID:   BahnExpert,
		TrainlineWeb.ID: TrainlineWeb,
	}
}
