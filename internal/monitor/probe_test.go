package monitor

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/railscout/internal/config"
	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/station"
)

type scriptedAcquirer struct {
	errs  []error
	calls int
	last  journey.Query
}

func (a *scriptedAcquirer) Acquire(_ context.Context, q journey.Query, _ string) ([]journey.Journey, error) {
	a.last = q
	i := a.calls
	a.calls++
	if i < len(a.errs) && a.errs[i] != nil {
		return nil, a.errs[i]
	}
	return []journey.Journey{{Source: "bahn"}}, nil
}

type recordingAlerter struct {
	alerts []string
}

func (r *recordingAlerter) SendShapeChanged(source, route, detail string) error {
	r.alerts = append(r.alerts, "shape:"+source)
	return nil
}

func (r *recordingAlerter) SendSourceFailing(source, route, kind, detail string) error {
	r.alerts = append(r.alerts, kind+":"+source)
	return nil
}

func (r *recordingAlerter) SendSourceRecovered(source, route string, journeys int) error {
	r.alerts = append(r.alerts, "recovered:"+source)
	return nil
}

var route = config.ProbeRoute{Source: "bahn", Origin: "Hamburg", Destination: "Amsterdam", DaysAhead: 7}

func newMonitor(acq Acquirer, alerter Alerter) *SourceMonitor {
	m := NewSourceMonitor(acq, station.NewDirectory(), alerter, time.UTC, logrus.New())
	m.now = func() time.Time { return time.Date(2025, 5, 25, 14, 0, 0, 0, time.UTC) }
	return m
}

func TestCheckRouteAlertsOnStateChange(t *testing.T) {
	shape := journey.ShapeChanged("bahn", "missing verbindungen")
	acq := &scriptedAcquirer{errs: []error{
		nil,
		shape,
		shape,
		nil,
		journey.Timeout("bahn", context.DeadlineExceeded),
		journey.Rejected("bahn", http.StatusServiceUnavailable),
	}}
	alerter := &recordingAlerter{}
	m := newMonitor(acq, alerter)

	for range acq.errs {
		require.NoError(t, m.CheckRoute(context.Background(), route))
	}
	require.Equal(t, []string{
		"shape:bahn",
		"recovered:bahn",
		"upstream_timeout:bahn",
		"upstream_rejected:bahn",
	}, alerter.alerts)
}

func TestCheckRouteFirstFailureAlerts(t *testing.T) {
	alerter := &recordingAlerter{}
	m := newMonitor(&scriptedAcquirer{errs: []error{errors.New("boom")}}, alerter)

	require.NoError(t, m.CheckRoute(context.Background(), route))
	require.Equal(t, []string{"internal:bahn"}, alerter.alerts)

	m.ResetNotificationState()
	require.NoError(t, m.CheckRoute(context.Background(), route))
	require.Equal(t, []string{"internal:bahn"}, alerter.alerts)
}

func TestCheckRouteBuildsQuery(t *testing.T) {
	acq := &scriptedAcquirer{}
	m := newMonitor(acq, &recordingAlerter{})

	require.NoError(t, m.CheckRoute(context.Background(), route))
	require.Equal(t, "Hamburg Hbf", acq.last.Origin.Name)
	require.Equal(t, "Amsterdam Centraal", acq.last.Destination.Name)
	require.Equal(t, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC), acq.last.Departure)
}

func TestCheckRouteSkipsInactiveDays(t *testing.T) {
	acq := &scriptedAcquirer{}
	m := newMonitor(acq, &recordingAlerter{})

	r := route
	r.Days = []string{"monday"}
	require.NoError(t, m.CheckRoute(context.Background(), r))
	require.Zero(t, acq.calls)
}
