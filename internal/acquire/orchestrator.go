// Package acquire runs a journey query against one or more sources with a
// bounded time budget and selective retries.
package acquire

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/normalize"
	"github.com/danpilch/railscout/internal/session"
)

var tracer = otel.Tracer("acquire")

// Source is a pluggable way of obtaining journeys for a query.
type Source interface {
	ID() string
	Fetch(ctx context.Context, q journey.Query, sess *session.Session) (journey.RawResult, error)
	Mapping() normalize.Mapping
}

// Validator is implemented by sources with requirements beyond a valid
// query, such as station locators.
type Validator interface {
	Validate(q journey.Query) error
}

// Policy bounds a single acquisition.
type Policy struct {
	AttemptTimeout time.Duration
	MaxRetries     int
}

func DefaultPolicy() Policy {
	return Policy{AttemptTimeout: 45 * time.Second, MaxRetries: 1}
}

// Result is the outcome of one source in AcquireAll.
type Result struct {
	Source   string
	Journeys []journey.Journey
	Err      error
}

type Orchestrator struct {
	sources map[string]Source
	store   *session.Store
	policy  Policy
	logger  *logrus.Logger
	metrics instruments
}

func NewOrchestrator(store *session.Store, policy Policy, logger *logrus.Logger, sources ...Source) *Orchestrator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if policy.AttemptTimeout <= 0 {
		policy.AttemptTimeout = DefaultPolicy().AttemptTimeout
	}
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	o := &Orchestrator{
		sources: make(map[string]Source, len(sources)),
		store:   store,
		policy:  policy,
		logger:  logger,
		metrics: newInstruments(),
	}
	for _, src := range sources {
		o.sources[src.ID()] = src
	}
	return o
}

// Sources returns the registered source ids in sorted order.
func (o *Orchestrator) Sources() []string {
	ids := make([]string, 0, len(o.sources))
	for id := range o.sources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Acquire returns the journeys sourceID offers for q. An empty slice is a
// successful answer. Failures are *journey.Error values except for
// unexpected adapter errors, which are returned wrapped.
func (o *Orchestrator) Acquire(ctx context.Context, q journey.Query, sourceID string) ([]journey.Journey, error) {
	ctx, span := tracer.Start(ctx, "acquire:Acquire")
	defer span.End()
	span.SetAttributes(attribute.String("source", sourceID))
	start := time.Now()

	src, err := o.validate(q, sourceID)
	if err != nil {
		span.SetStatus(codes.Error, "invalid query")
		o.metrics.record(ctx, sourceID, start, err)
		return nil, err
	}

	lease, err := o.store.Lease(ctx, sourceID)
	if err != nil {
		span.SetStatus(codes.Error, "lease wait")
		err = journey.Timeout(sourceID, fmt.Errorf("waiting for session: %w", err))
		o.metrics.record(ctx, sourceID, start, err)
		return nil, err
	}
	defer lease.Release()

	sess := lease.Session()
	var last error
	for attempt := 1; attempt <= o.policy.MaxRetries+1; attempt++ {
		journeys, err := o.attempt(ctx, src, q, sess)
		if err == nil {
			span.SetAttributes(attribute.Int("journeys", len(journeys)), attribute.Int("attempts", attempt))
			o.metrics.record(ctx, sourceID, start, nil)
			return journeys, nil
		}
		last = err

		fields := logrus.Fields{
			"source":  sourceID,
			"attempt": attempt,
			"error":   err,
		}
		e, ok := journey.AsError(err)
		if !ok || !e.Retryable() {
			o.logger.WithFields(fields).Warn("acquisition failed")
			break
		}
		// the failed attempt may still hold the session
		sess = lease.Renew()
		if ctx.Err() != nil {
			o.logger.WithFields(fields).Warn("acquisition failed, caller gave up")
			break
		}
		o.logger.WithFields(fields).Info("acquisition attempt failed, retrying with fresh session")
	}

	span.SetStatus(codes.Error, last.Error())
	o.metrics.record(ctx, sourceID, start, last)
	return nil, last
}

func (o *Orchestrator) validate(q journey.Query, sourceID string) (Source, error) {
	if err := q.Validate(); err != nil {
		if e, ok := journey.AsError(err); ok {
			return nil, e.WithSource(sourceID)
		}
		return nil, err
	}
	src, ok := o.sources[sourceID]
	if !ok {
		return nil, journey.InvalidQuery(sourceID, "unknown source")
	}
	if v, ok := src.(Validator); ok {
		if err := v.Validate(q); err != nil {
			return nil, err
		}
	}
	return src, nil
}

type outcome struct {
	raw journey.RawResult
	err error
}

// attempt runs one adapter call under the attempt timeout. The call runs on
// its own goroutine so an adapter that ignores its context cannot hold the
// caller past the deadline.
func (o *Orchestrator) attempt(ctx context.Context, src Source, q journey.Query, sess *session.Session) ([]journey.Journey, error) {
	ctx, cancel := context.WithTimeout(ctx, o.policy.AttemptTimeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		raw, err := src.Fetch(ctx, q, sess)
		done <- outcome{raw: raw, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		return nil, journey.Timeout(src.ID(), ctx.Err())
	}

	if out.err != nil {
		if e, ok := journey.AsError(out.err); ok {
			return nil, e.WithSource(src.ID())
		}
		if ctx.Err() != nil {
			return nil, journey.Timeout(src.ID(), out.err)
		}
		return nil, fmt.Errorf("%s: %w", src.ID(), out.err)
	}

	if out.raw.Source == "" {
		out.raw.Source = src.ID()
	}
	res, err := normalize.Normalize(src.Mapping(), q, out.raw)
	if err != nil {
		return nil, err
	}
	for _, dropped := range res.Dropped {
		o.logger.WithFields(logrus.Fields{
			"source": src.ID(),
			"error":  dropped,
		}).Warn("dropped journey row")
	}
	return res.Journeys, nil
}

// AcquireAll queries every source concurrently. Results keep the order of
// sourceIDs.
func (o *Orchestrator) AcquireAll(ctx context.Context, q journey.Query, sourceIDs []string) []Result {
	results := make([]Result, len(sourceIDs))
	var wg sync.WaitGroup
	for i, id := range sourceIDs {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			journeys, err := o.Acquire(ctx, q, id)
			results[i] = Result{Source: id, Journeys: journeys, Err: err}
		}(i, id)
	}
	wg.Wait()
	return results
}
