package trainline

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/normalize"
	"github.com/danpilch/railscout/internal/session"
)

const sampleResponse = `{
  "data": {
    "journeySearch": {
      "journeys": {
        "j1": {"departAt": "2025-06-01T08:00:00+02:00", "arriveAt": "2025-06-01T12:30:00+02:00", "duration": "PT4H30M", "legs": ["l1"]},
        "j2": {"departAt": "2025-06-01T09:15:00+02:00", "arriveAt": "2025-06-01T14:40:00+02:00", "duration": "PT5H25M", "legs": ["l2", "l3"]}
      }
    }
  }
}`

func testQuery() journey.Query {
	return journey.Query{
		Origin:      journey.Station{Name: "Hamburg Hbf", Refs: map[string]string{SourceID: "urn:trainline:generic:loc:HAM"}},
		Destination: journey.Station{Name: "Amsterdam Centraal", Refs: map[string]string{SourceID: "urn:trainline:generic:loc:AMS"}},
		Departure:   time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		Passengers:  []journey.Passenger{{Type: journey.PassengerAdult, Count: 2}},
	}
}

func TestFetch(t *testing.T) {
	var body SearchRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != searchPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	client := NewClient(Options{BaseURL: srv.URL, RatePerSecond: 100})
	raw, err := client.Fetch(context.Background(), testQuery(), session.NewStore().Get(SourceID))
	require.NoError(t, err)
	require.Equal(t, SourceID, raw.Source)

	require.Equal(t, []Passenger{{ID: "1", Type: "adult"}, {ID: "2", Type: "adult"}}, body.Passengers)
	require.Len(t, body.TransitDefinitions, 1)
	require.Equal(t, "urn:trainline:generic:loc:HAM", body.TransitDefinitions[0].Origin)
	require.Equal(t, "2025-06-01T00:00:00", body.TransitDefinitions[0].JourneyDate.Time)

	res, err := normalize.Normalize(client.Mapping(), testQuery(), raw)
	require.NoError(t, err)
	require.Len(t, res.Journeys, 2)
	changes := map[int]bool{}
	for _, j := range res.Journeys {
		changes[*j.Changes] = true
		require.Nil(t, j.Price)
	}
	require.Equal(t, map[int]bool{0: true, 1: true}, changes)
}

func TestFetchRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := NewClient(Options{BaseURL: srv.URL}).Fetch(context.Background(), testQuery(), session.NewStore().Get(SourceID))
	e, ok := journey.AsError(err)
	require.True(t, ok)
	require.Equal(t, journey.KindUpstreamRejected, e.Kind)
	require.False(t, e.Retryable())
}

func TestValidateNeedsURNs(t *testing.T) {
	q := testQuery()
	q.Destination.Refs = map[string]string{"bahn": "x"}
	require.True(t, journey.IsKind(NewClient(Options{}).Validate(q), journey.KindInvalidQuery))
}
