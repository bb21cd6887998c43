package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/railscout/internal/acquire"
	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/station"
)

type fakeAcquirer struct {
	results map[string]acquire.Result
	query   journey.Query
	asked   []string
}

func (f *fakeAcquirer) AcquireAll(_ context.Context, q journey.Query, ids []string) []acquire.Result {
	f.query = q
	f.asked = ids
	out := make([]acquire.Result, 0, len(ids))
	for _, id := range ids {
		res := f.results[id]
		res.Source = id
		out = append(out, res)
	}
	return out
}

func (f *fakeAcquirer) Sources() []string { return []string{"bahn", "bahn-int"} }

func sampleJourney() journey.Journey {
	d := 4*time.Hour + 30*time.Minute
	changes := 0
	return journey.Journey{
		Source:    "bahn",
		Departure: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Arrival:   time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
		Duration:  &d,
		Changes:   &changes,
	}
}

func serve(t *testing.T, acq *fakeAcquirer, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	logger := logrus.New()
	h := NewHandler(acq, station.NewDirectory(), Options{DefaultSources: []string{"bahn"}, Logger: logger})

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestJourneysSuccess(t *testing.T) {
	acq := &fakeAcquirer{results: map[string]acquire.Result{
		"bahn": {Journeys: []journey.Journey{sampleJourney()}},
	}}
	rec, body := serve(t, acq, "/journeys?origin=Hamburg&destination=Amsterdam&departureDate=2025-06-01")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"bahn"}, acq.asked)
	require.Equal(t, "Hamburg Hbf", acq.query.Origin.Name)
	require.NotEmpty(t, acq.query.Origin.Refs["bahn"])

	results := body["results"].([]any)
	require.Len(t, results, 1)
	result := results[0].(map[string]any)
	require.NotContains(t, result, "error")
	j := result["journeys"].([]any)[0].(map[string]any)
	require.Equal(t, float64(270), j["durationMinutes"])
	require.Equal(t, float64(0), j["changes"])
	require.NotContains(t, j, "price")
	require.NotContains(t, j, "products")
}

func TestJourneysEmptyListIsSuccess(t *testing.T) {
	acq := &fakeAcquirer{results: map[string]acquire.Result{"bahn": {Journeys: []journey.Journey{}}}}
	rec, body := serve(t, acq, "/journeys?origin=Hamburg&destination=Amsterdam&departureDate=2025-06-01")
	require.Equal(t, http.StatusOK, rec.Code)
	result := body["results"].([]any)[0].(map[string]any)
	require.Equal(t, []any{}, result["journeys"])
}

func TestJourneysStatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{journey.Rejected("bahn", http.StatusForbidden), http.StatusBadGateway, "upstream_rejected"},
		{journey.ShapeChanged("bahn", "rows"), http.StatusBadGateway, "upstream_shape_changed"},
		{journey.Unavailable("bahn", errors.New("down")), http.StatusBadGateway, "unavailable"},
		{journey.Timeout("bahn", context.DeadlineExceeded), http.StatusGatewayTimeout, "upstream_timeout"},
		{journey.InvalidQuery("bahn", "no locator"), http.StatusBadRequest, "invalid_query"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		acq := &fakeAcquirer{results: map[string]acquire.Result{"bahn": {Err: tc.err}}}
		rec, body := serve(t, acq, "/journeys?origin=Hamburg&destination=Amsterdam&departureDate=2025-06-01&source=bahn")
		require.Equal(t, tc.status, rec.Code)
		result := body["results"].([]any)[0].(map[string]any)
		require.NotContains(t, result, "journeys")
		require.Equal(t, tc.kind, result["error"].(map[string]any)["kind"])
	}
}

func TestJourneysMultipleSources(t *testing.T) {
	acq := &fakeAcquirer{results: map[string]acquire.Result{
		"bahn":     {Journeys: []journey.Journey{sampleJourney()}},
		"bahn-int": {Err: journey.ShapeChanged("bahn-int", "rows")},
	}}
	rec, body := serve(t, acq, "/journeys?origin=Hamburg&destination=Amsterdam&departureDate=2025-06-01&source=bahn,%20bahn-int")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"bahn", "bahn-int"}, acq.asked)
	require.Len(t, body["results"], 2)
}

func TestJourneysRejectsBadInput(t *testing.T) {
	for _, target := range []string{
		"/journeys?destination=Amsterdam&departureDate=2025-06-01",
		"/journeys?origin=Hamburg&destination=Amsterdam&departureDate=June",
		"/journeys?origin=Hamburg&destination=hamburg&departureDate=2025-06-01",
	} {
		acq := &fakeAcquirer{}
		rec, body := serve(t, acq, target)
		require.Equal(t, http.StatusBadRequest, rec.Code, target)
		require.Equal(t, "invalid_query", body["error"].(map[string]any)["kind"])
		require.Nil(t, acq.asked)
	}
}

func TestSourcesAndHealth(t *testing.T) {
	rec, body := serve(t, &fakeAcquirer{}, "/sources")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []any{"bahn", "bahn-int"}, body["sources"])

	rec, body = serve(t, &fakeAcquirer{}, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
}
