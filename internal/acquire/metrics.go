package acquire

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/danpilch/railscout/internal/journey"
)

var meter = otel.Meter("acquire")

type instruments struct {
	outcomes metric.Int64Counter
	duration metric.Float64Histogram
}

func newInstruments() instruments {
	var ins instruments
	var err error
	ins.outcomes, err = meter.Int64Counter("railscout.acquisitions",
		metric.WithDescription("Acquisitions by source and outcome"))
	if err != nil {
		ins.outcomes = noop.Int64Counter{}
	}
	ins.duration, err = meter.Float64Histogram("railscout.acquisition.duration",
		metric.WithDescription("Wall time of an acquisition including retries"),
		metric.WithUnit("s"))
	if err != nil {
		ins.duration = noop.Float64Histogram{}
	}
	return ins
}

// outcomeLabel is "ok", the error kind, or "internal" for errors outside the
// taxonomy.
func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := journey.AsError(err); ok {
		return e.Kind.String()
	}
	return "internal"
}

func (ins instruments) record(ctx context.Context, sourceID string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("source", sourceID),
		attribute.String("outcome", outcomeLabel(err)),
	)
	ins.outcomes.Add(ctx, 1, attrs)
	ins.duration.Record(ctx, time.Since(start).Seconds(), attrs)
}
