package acquire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/railscout/internal/api/bahn"
	"github.com/danpilch/railscout/internal/journey"
)

func TestAcquireRetriesAgainstBackend(t *testing.T) {
	cases := []struct {
		status int
		hits   int32
	}{
		{http.StatusInternalServerError, 2},
		{http.StatusBadGateway, 2},
		{http.StatusBadRequest, 1},
		{http.StatusTooManyRequests, 1},
	}
	for _, tc := range cases {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			var hits int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			flavor := bahn.International
			flavor.BaseURL = srv.URL
			client := bahn.NewClient(bahn.Options{Flavor: flavor, RatePerSecond: 1000, Timeout: 2 * time.Second, Logger: logrus.New()})
			o, _ := newOrchestrator(Policy{AttemptTimeout: 5 * time.Second, MaxRetries: 1}, client)

			q := testQuery()
			q.Origin.Refs = map[string]string{"bahn-int": "A=1@O=Hamburg Hbf@L=8002549@"}
			q.Destination.Refs = map[string]string{"bahn-int": "A=1@O=AMSTERDAM@L=8496058@"}

			_, err := o.Acquire(context.Background(), q, "bahn-int")
			e, ok := journey.AsError(err)
			require.True(t, ok, "got %v", err)
			require.Equal(t, journey.KindUpstreamRejected, e.Kind)
			require.Equal(t, tc.status, e.StatusCode)
			require.Equal(t, tc.hits, atomic.LoadInt32(&hits))
		})
	}
}
