// Package api holds what the request adapters share: a per-attempt resty
// client bound to a session, and the mapping of transport failures onto the
// acquisition error taxonomy.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/session"
)

// ClientOptions configure the HTTP client of a single attempt.
type ClientOptions struct {
	Source    string
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Logger    *logrus.Logger
}

// NewHTTP builds a resty client whose cookie jar is the session's, so every
// response's cookies are merged into the session. The client belongs to one
// attempt and is dropped with it.
func NewHTTP(opts ClientOptions, sess *session.Session) *resty.Client {
	client := resty.New()
	client.SetTransport(otelhttp.NewTransport(http.DefaultTransport.(*http.Transport).Clone()))
	client.SetBaseURL(opts.BaseURL)
	client.SetCookieJar(sess.Jar())
	client.SetHeader("user-agent", opts.UserAgent)
	if opts.Timeout > 0 {
		client.SetTimeout(opts.Timeout)
	}

	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	client.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		logger.WithFields(logrus.Fields{
			"source": opts.Source,
			"method": req.Method,
			"url":    req.URL,
		}).Debug("upstream request")
		return nil
	})
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		logger.WithFields(logrus.Fields{
			"source":   opts.Source,
			"status":   res.StatusCode(),
			"duration": res.Time(),
		}).Debug("upstream response")
		return nil
	})
	client.OnError(func(req *resty.Request, err error) {
		logger.WithFields(logrus.Fields{
			"source": opts.Source,
			"method": req.Method,
			"url":    req.URL,
			"error":  err,
		}).Warn("upstream request failed")
	})
	return client
}

// Classify maps a failed request onto the taxonomy: anything that ran out of
// time is UpstreamTimeout, anything else never reached the backend.
func Classify(ctx context.Context, source string, err error) *journey.Error {
	if e, ok := journey.AsError(err); ok {
		return e.WithSource(source)
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) {
		return journey.Timeout(source, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return journey.Timeout(source, err)
	}
	return journey.Unavailable(source, err)
}

// CheckResponse turns a non-2xx response into UpstreamRejected.
func CheckResponse(source string, res *resty.Response) error {
	if res.IsSuccess() {
		return nil
	}
	return journey.Rejected(source, res.StatusCode())
}
