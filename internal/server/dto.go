package server

import (
	"net/http"
	"time"

	"github.com/danpilch/railscout/internal/acquire"
	"github.com/danpilch/railscout/internal/journey"
)

type searchResponse struct {
	Results []resultDTO `json:"results"`
}

type resultDTO struct {
	Source   string       `json:"source"`
	Journeys []journeyDTO `json:"journeys,omitzero"`
	Error    *errorDTO    `json:"error,omitempty"`
}

type journeyDTO struct {
	Source          string    `json:"source"`
	Departure       time.Time `json:"departure"`
	Arrival         time.Time `json:"arrival"`
	DurationMinutes *int      `json:"durationMinutes,omitempty"`
	Changes         *int      `json:"changes,omitempty"`
	Products        []string  `json:"products,omitempty"`
	Price           *priceDTO `json:"price,omitempty"`
}

type priceDTO struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
}

type errorDTO struct {
	Kind           string `json:"kind"`
	Message        string `json:"message"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

func newJourneyDTO(j journey.Journey) journeyDTO {
	out := journeyDTO{
		Source:    j.Source,
		Departure: j.Departure,
		Arrival:   j.Arrival,
		Changes:   j.Changes,
		Products:  j.Products,
	}
	if j.Duration != nil {
		minutes := int(j.Duration.Minutes())
		out.DurationMinutes = &minutes
	}
	if j.Price != nil {
		out.Price = &priceDTO{Amount: j.Price.Amount, Currency: j.Price.Currency}
	}
	return out
}

// newErrorDTO describes err for a caller. Anything outside the taxonomy is
// reported without detail.
func newErrorDTO(err error) *errorDTO {
	e, ok := journey.AsError(err)
	if !ok {
		return &errorDTO{Kind: "internal", Message: "internal error"}
	}
	return &errorDTO{Kind: e.Kind.String(), Message: e.Error(), UpstreamStatus: e.StatusCode}
}

func newResultDTO(r acquire.Result) resultDTO {
	if r.Err != nil {
		return resultDTO{Source: r.Source, Error: newErrorDTO(r.Err)}
	}
	journeys := make([]journeyDTO, 0, len(r.Journeys))
	for _, j := range r.Journeys {
		journeys = append(journeys, newJourneyDTO(j))
	}
	return resultDTO{Source: r.Source, Journeys: journeys}
}

// statusOf is the HTTP status for err.
func statusOf(err error) int {
	if e, ok := journey.AsError(err); ok {
		return e.HTTPStatus()
	}
	return http.StatusInternalServerError
}
