package trainline

// SearchRequest is the journey-search body the trainline web client posts.
type SearchRequest struct {
	Passengers         []Passenger         `json:"passengers"`
	IsEurope           bool                `json:"isEurope"`
	Cards              []string            `json:"cards"`
	TransitDefinitions []TransitDefinition `json:"transitDefinitions"`
	Type               string              `json:"type"`
	MaximumJourneys    int                 `json:"maximumJourneys"`
	IncludeRealtime    bool                `json:"includeRealtime"`
	TransportModes     []string            `json:"transportModes"`
	DirectSearch       bool                `json:"directSearch"`
}

// Passenger is one traveller in a search.
type Passenger struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// TransitDefinition is one direction of the search.
type TransitDefinition struct {
	Direction   string      `json:"direction"`
	Origin      string      `json:"origin"`
	Destination string      `json:"destination"`
	JourneyDate JourneyDate `json:"journeyDate"`
}

// JourneyDate is a search time with its interpretation.
type JourneyDate struct {
	Type string `json:"type"`
	Time string `json:"time"`
}

const (
	DirectionOutward = "outward"
	DepartAfter      = "departAfter"
	SearchSingle     = "single"
	ModeMixed        = "mixed"
)
