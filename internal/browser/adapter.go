// Package browser acquires journeys by driving a booking website in a
// headless browser and scraping the rendered result rows.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/normalize"
	"github.com/danpilch/railscout/internal/session"
)

var tracer = otel.Tracer("browser")

// Adapter runs a Site script in a fresh browser per attempt.
type Adapter struct {
	site     Site
	launcher Launcher
	logger   *logrus.Logger
}

// NewAdapter creates an adapter that drives site through browsers from launcher.
func NewAdapter(site Site, launcher Launcher, logger *logrus.Logger) *Adapter {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Adapter{site: site, launcher: launcher, logger: logger}
}

// ID returns the site id.
func (a *Adapter) ID() string { return a.site.ID }

// Mapping returns how the site's extracted rows are normalized.
func (a *Adapter) Mapping() normalize.Mapping { return a.site.Mapping }

// Fetch drives the site from launch to extraction. The browser carries its
// own cookies, so the session is not used; holding its lease still keeps one
// browser per site at a time.
func (a *Adapter) Fetch(ctx context.Context, q journey.Query, _ *session.Session) (journey.RawResult, error) {
	ctx, span := tracer.Start(ctx, "browser:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("source", a.site.ID))

	drv, err := a.launcher.Launch(ctx)
	if err != nil {
		span.SetStatus(codes.Error, "launch failed")
		if ctx.Err() != nil {
			return journey.RawResult{}, journey.Timeout(a.site.ID, err)
		}
		return journey.RawResult{}, journey.Unavailable(a.site.ID, err)
	}

	r := &run{site: a.site, drv: drv, state: Launched, logger: a.logger}
	defer r.close()

	rows, err := r.execute(ctx, q)
	if err != nil {
		span.SetStatus(codes.Error, "run failed")
		span.SetAttributes(attribute.String("state", r.state.String()))
		return journey.RawResult{}, err
	}
	span.SetAttributes(attribute.Int("rows", len(rows)))
	return journey.RawResult{Source: a.site.ID, Rows: rows}, nil
}

type run struct {
	site   Site
	drv    Driver
	state  State
	logger *logrus.Logger
}

func (r *run) execute(ctx context.Context, q journey.Query) ([]journey.Fields, error) {
	s := r.site

	err := r.step(ctx, PageLoaded, s.Timeouts.Navigation, s.URL, func(ctx context.Context) error {
		return r.drv.Navigate(ctx, s.URL)
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, OriginEntered, s.Timeouts.Element, s.Origin.Selector, func(ctx context.Context) error {
		return r.enter(ctx, s.Origin, q.Origin.Name)
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, DestinationEntered, s.Timeouts.Element, s.Destination.Selector, func(ctx context.Context) error {
		return r.enter(ctx, s.Destination, q.Destination.Name)
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, DateEntered, s.Timeouts.Element, s.Date.Selector, func(ctx context.Context) error {
		return r.enter(ctx, s.Date, q.Departure.In(s.location()).Format(s.DateLayout))
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, Submitted, s.Timeouts.Element, s.Submit, func(ctx context.Context) error {
		if err := r.drv.WaitVisible(ctx, s.Submit); err != nil {
			return err
		}
		return r.drv.Click(ctx, s.Submit)
	})
	if err != nil {
		return nil, err
	}

	err = r.step(ctx, ResultsRendered, s.Timeouts.Results, s.Rows, func(ctx context.Context) error {
		return r.drv.WaitVisible(ctx, s.Rows)
	})
	if err != nil {
		if r.stillLoading(ctx, err) {
			return nil, journey.Timeout(s.ID, fmt.Errorf("results page still loading after %s", s.Timeouts.Results))
		}
		if !r.noResults(ctx, err) {
			return nil, err
		}
		r.logger.WithField("source", s.ID).Debug("site rendered no connections")
		r.state = ResultsRendered
	}

	var rows []journey.Fields
	err = r.step(ctx, Extracted, s.Timeouts.Element, "html", func(ctx context.Context) error {
		html, err := r.drv.HTML(ctx)
		if err != nil {
			return err
		}
		rows, err = extract(html, s.Rows, s.Fields)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// step runs one transition with its own deadline and classifies its failure.
func (r *run) step(ctx context.Context, next State, timeout time.Duration, target string, fn func(context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := fn(stepCtx); err != nil {
		return r.classify(ctx, next, target, err)
	}
	r.logger.WithFields(logrus.Fields{
		"source":   r.site.ID,
		"state":    next.String(),
		"duration": time.Since(start),
	}).Debug("browser transition")
	r.state = next
	return nil
}

// classify maps a failed transition onto the error taxonomy. A page that
// does not load in time is a timeout; an element that never shows up on a
// loaded page means the site changed.
func (r *run) classify(ctx context.Context, next State, target string, err error) error {
	id := r.site.ID
	if ctx.Err() != nil {
		return journey.Timeout(id, fmt.Errorf("%s: %w", next, err))
	}
	if errors.Is(err, context.DeadlineExceeded) {
		if next == PageLoaded {
			return journey.Timeout(id, fmt.Errorf("load %s: %w", target, err))
		}
		return journey.ShapeChanged(id, fmt.Sprintf("%s not found before %s", target, next))
	}
	if e, ok := journey.AsError(err); ok {
		return e.WithSource(id)
	}
	return journey.Unavailable(id, fmt.Errorf("%s: %w", next, err))
}

// stillLoading reports whether a results wait ran out because the page the
// submit navigated to never finished loading. A document that cannot even
// answer counts as loading.
func (r *run) stillLoading(ctx context.Context, err error) bool {
	if !journey.IsKind(err, journey.KindUpstreamShapeChanged) {
		return false
	}
	readyCtx, cancel := context.WithTimeout(ctx, r.site.Timeouts.Element)
	defer cancel()
	ready, rerr := r.drv.Ready(readyCtx)
	return rerr != nil || !ready
}

// noResults reports whether a results wait failed because the site rendered
// its empty-search marker instead of rows.
func (r *run) noResults(ctx context.Context, err error) bool {
	if r.site.NoResults == "" || !journey.IsKind(err, journey.KindUpstreamShapeChanged) {
		return false
	}
	htmlCtx, cancel := context.WithTimeout(ctx, r.site.Timeouts.Element)
	defer cancel()
	html, herr := r.drv.HTML(htmlCtx)
	if herr != nil {
		return false
	}
	doc, herr := goquery.NewDocumentFromReader(strings.NewReader(html))
	if herr != nil {
		return false
	}
	return doc.Find(r.site.NoResults).Length() > 0
}

func (r *run) enter(ctx context.Context, in Input, text string) error {
	if err := r.drv.WaitVisible(ctx, in.Selector); err != nil {
		return err
	}
	if err := r.drv.Click(ctx, in.Selector); err != nil {
		return err
	}
	target := in.Selector
	for _, key := range in.PreKeys {
		if err := r.drv.Press(ctx, key); err != nil {
			return err
		}
		target = ""
	}
	if err := r.drv.Type(ctx, target, text); err != nil {
		return err
	}
	if in.Confirm == "" {
		return nil
	}
	if err := sleep(ctx, r.site.SettleDelay); err != nil {
		return err
	}
	return r.drv.Press(ctx, in.Confirm)
}

func (r *run) close() {
	if err := r.drv.Close(); err != nil {
		r.logger.WithFields(logrus.Fields{
			"source": r.site.ID,
			"error":  err,
		}).Warn("failed to close browser")
	}
	r.state = Closed
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// extract reads every row matching rowSelector. A field whose element is
// missing is left out of the row.
func extract(html, rowSelector string, fields map[normalize.Field]Extract) ([]journey.Fields, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}

	rows := []journey.Fields{}
	doc.Find(rowSelector).Each(func(_ int, row *goquery.Selection) {
		out := make(journey.Fields, len(fields))
		for field, ex := range fields {
			if text, ok := extractField(row, ex); ok {
				out[string(field)] = text
			}
		}
		rows = append(rows, out)
	})
	return rows, nil
}

func extractField(row *goquery.Selection, ex Extract) (string, bool) {
	matches := row.Find(ex.Selector)
	if ex.All {
		var parts []string
		matches.Each(func(_ int, s *goquery.Selection) {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		})
		return strings.Join(parts, ","), len(parts) > 0
	}
	if ex.Index >= matches.Length() {
		return "", false
	}
	text := strings.TrimSpace(matches.Eq(ex.Index).Text())
	return text, text != ""
}
