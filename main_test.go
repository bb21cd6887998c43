package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/railscout/internal/acquire"
	"github.com/danpilch/railscout/internal/config"
	"github.com/danpilch/railscout/internal/journey"
)

func TestBuildSources(t *testing.T) {
	cfg, err := config.Parse([]byte(`
sources:
  bahn: {}
  bahn-int: {}
  trainline: {}
  bahn-expert: {}
  trainline-web: {disabled: true}
`))
	require.NoError(t, err)

	var ids []string
	for _, src := range buildSources(cfg, logrus.New()) {
		ids = append(ids, src.ID())
	}
	require.Equal(t, []string{"bahn", "bahn-expert", "bahn-int", "trainline"}, ids)
}

func TestStationDirectoryFromConfig(t *testing.T) {
	cfg, err := config.Parse([]byte(`
stations:
  - name: Berlin Hbf
    aliases: [Berlin]
    refs: {bahn: "A=1@O=Berlin Hbf@"}
`))
	require.NoError(t, err)

	dir := newStationDirectory(cfg)
	st := dir.Lookup("berlin")
	require.Equal(t, "Berlin Hbf", st.Name)
	ref, ok := st.Ref("bahn")
	require.True(t, ok)
	require.Equal(t, "A=1@O=Berlin Hbf@", ref)

	require.Equal(t, "Hamburg Hbf", dir.Lookup("Hamburg").Name)
}

func TestRenderResults(t *testing.T) {
	d := 4*time.Hour + 30*time.Minute
	changes := 1
	results := []acquire.Result{
		{Source: "bahn", Journeys: []journey.Journey{{
			Source:    "bahn",
			Departure: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
			Arrival:   time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC),
			Duration:  &d,
			Changes:   &changes,
			Products:  []string{"ICE", "IC"},
			Price:     &journey.Price{Amount: 49.9, Currency: "EUR"},
		}}},
		{Source: "trainline", Err: errors.New("boom")},
		{Source: "bahn-int", Journeys: []journey.Journey{}},
	}

	var buf bytes.Buffer
	renderResults(&buf, results, time.UTC)
	out := buf.String()
	require.Contains(t, out, "2025-06-01 08:00")
	require.Contains(t, out, "4:30")
	require.Contains(t, out, "ICE, IC")
	require.Contains(t, out, "49.90 EUR")
	require.Contains(t, out, "error: boom")
	require.Contains(t, out, "no journeys")
	require.Equal(t, 1, countFailed(results))
}

func TestFormatOptionalFields(t *testing.T) {
	require.Equal(t, "-", formatDuration(nil))
	require.Equal(t, "-", formatChanges(nil))
	require.Equal(t, "-", formatPrice(nil))
	require.Equal(t, "12.00", formatPrice(&journey.Price{Amount: 12}))
}

func TestExampleConfigLoads(t *testing.T) {
	cfg, err := config.Load("config.example.yaml")
	require.NoError(t, err)
	require.Len(t, buildSources(cfg, logrus.New()), 4)
	require.True(t, cfg.Probe.Enabled)
	require.Equal(t, 587, cfg.Notify.Email.Port)
}
