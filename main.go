package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/sirupsen/logrus"

	"github.com/danpilch/railscout/internal/acquire"
	"github.com/danpilch/railscout/internal/config"
	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/monitor"
	"github.com/danpilch/railscout/internal/notify"
	"github.com/danpilch/railscout/internal/scheduler"
	"github.com/danpilch/railscout/internal/server"
	"github.com/danpilch/railscout/internal/session"
	"github.com/danpilch/railscout/internal/station"
	"github.com/danpilch/railscout/internal/telemetry"
)

var CLI struct {
	Config   string `help:"Path to config file" type:"path"`
	LogLevel string `help:"Log level" default:"info" enum:"debug,info,warn,error"`

	Serve  ServeCmd  `cmd:"" default:"1" help:"Serve the journey API"`
	Search SearchCmd `cmd:"" help:"Search journeys once and print them"`
	Probe  ProbeCmd  `cmd:"" help:"Run every probe route once"`
}

// App is what every command shares.
type App struct {
	cfg          *config.Config
	logger       *logrus.Logger
	stations     *station.Directory
	orchestrator *acquire.Orchestrator
}

func main() {
	kctx := kong.Parse(&CLI,
		kong.Name("railscout"),
		kong.Description("Searches train journeys across booking sites."),
	)

	// Setup structured logging with logfmt
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	level, err := logrus.ParseLevel(CLI.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: true,
		FullTimestamp: true,
	})

	// Load configuration
	cfg := config.Default()
	if CLI.Config != "" {
		cfg, err = config.Load(CLI.Config)
		if err != nil {
			logger.WithField("error", err).Fatal("failed to load config")
		}
	}

	tel, err := telemetry.Setup(context.Background(), "railscout", cfg.Telemetry)
	if err != nil {
		logger.WithField("error", err).Fatal("failed to set up telemetry")
	}

	stations := newStationDirectory(cfg)
	orchestrator := acquire.NewOrchestrator(
		session.NewStore(),
		acquire.Policy{
			AttemptTimeout: cfg.Acquisition.AttemptTimeout,
			MaxRetries:     cfg.Acquisition.Retries(),
		},
		logger,
		buildSources(cfg, logger)...,
	)

	app := &App{cfg: cfg, logger: logger, stations: stations, orchestrator: orchestrator}
	runErr := kctx.Run(app)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tel.Shutdown(shutdownCtx); err != nil {
		logger.WithField("error", err).Warn("telemetry shutdown incomplete")
	}
	kctx.FatalIfErrorf(runErr)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(logger *logrus.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigCh:
			logger.WithField("signal", sig).Info("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func newNotifier(cfg *config.Config, logger *logrus.Logger) monitor.Alerter {
	var alerters notify.Multi

	// Get credentials from environment
	pushoverToken := os.Getenv("PUSHOVER_TOKEN")
	pushoverUser := os.Getenv("PUSHOVER_USER")
	if pushoverToken != "" && pushoverUser != "" {
		alerters = append(alerters, notify.NewNotifier(pushoverToken, pushoverUser, logger))
	}

	if mail := cfg.Notify.Email; mail.Enabled() {
		alerters = append(alerters, notify.NewMailer(notify.EmailOptions{
			Host:     mail.Host,
			Port:     mail.Port,
			Username: mail.Username,
			Password: os.Getenv("RAILSCOUT_SMTP_PASSWORD"),
			From:     mail.From,
			To:       mail.To,
		}, logger))
	}

	if len(alerters) == 0 {
		logger.Warn("no pushover credentials or email configured, probe alerts are only logged")
		return notify.Discard{Logger: logger}
	}
	return alerters
}

type ServeCmd struct {
	Addr string `help:"Listen address, overrides the config file"`
}

func (c *ServeCmd) Run(app *App) error {
	ctx, cancel := signalContext(app.logger)
	defer cancel()

	addr := app.cfg.Server.Addr
	if c.Addr != "" {
		addr = c.Addr
	}
	handler := server.NewHandler(app.orchestrator, app.stations, server.Options{
		DefaultSources: app.cfg.Acquisition.DefaultSources,
		RequestTimeout: app.cfg.Server.RequestTimeout,
		Location:       app.cfg.Location(),
		Logger:         app.logger,
	})
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var sched *scheduler.Scheduler
	if app.cfg.Probe.Enabled {
		prober := monitor.NewSourceMonitor(app.orchestrator, app.stations, newNotifier(app.cfg, app.logger), app.cfg.Location(), app.logger)
		sched = scheduler.NewScheduler(app.cfg.Probe, prober, app.logger)
		sched.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.WithFields(logrus.Fields{
			"addr":    addr,
			"sources": strings.Join(app.orchestrator.Sources(), ","),
		}).Info("starting railscout")
		errCh <- srv.ListenAndServe()
	}()

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("serving http: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.WithField("error", err).Warn("http shutdown incomplete")
	}

	// Stop scheduler gracefully
	if sched != nil {
		sched.Stop()
	}
	app.logger.Info("railscout stopped")
	return serveErr
}

type SearchCmd struct {
	Origin      string   `arg:"" help:"Origin station name"`
	Destination string   `arg:"" help:"Destination station name"`
	Departure   string   `help:"Departure date or date and time" default:"today"`
	Source      []string `help:"Sources to query, defaults to the configured ones"`
}

func (c *SearchCmd) Run(app *App) error {
	ctx, cancel := signalContext(app.logger)
	defer cancel()

	departure, err := c.departure(app.cfg.Location())
	if err != nil {
		return err
	}
	q := journey.Query{
		Origin:      app.stations.Lookup(c.Origin),
		Destination: app.stations.Lookup(c.Destination),
		Departure:   departure,
		Passengers:  journey.DefaultPassengers(),
	}
	sources := c.Source
	if len(sources) == 0 {
		sources = app.cfg.Acquisition.DefaultSources
	}

	ctx, cancelSearch := context.WithTimeout(ctx, app.cfg.Server.RequestTimeout)
	defer cancelSearch()
	results := app.orchestrator.AcquireAll(ctx, q, sources)

	renderResults(os.Stdout, results, app.cfg.Location())

	if n := countFailed(results); n > 0 {
		return fmt.Errorf("%d of %d sources failed", n, len(results))
	}
	return nil
}

func (c *SearchCmd) departure(loc *time.Location) (time.Time, error) {
	if c.Departure == "today" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	return journey.ParseDeparture(c.Departure, loc)
}

func countFailed(results []acquire.Result) int {
	n := 0
	for _, res := range results {
		if res.Err != nil {
			n++
		}
	}
	return n
}

func renderResults(out io.Writer, results []acquire.Result, loc *time.Location) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Source", "Departure", "Arrival", "Duration", "Changes", "Products", "Price"})

	for _, res := range results {
		if res.Err != nil {
			t.AppendRow(table.Row{res.Source, "error: " + res.Err.Error()})
			continue
		}
		if len(res.Journeys) == 0 {
			t.AppendRow(table.Row{res.Source, "no journeys"})
			continue
		}
		for _, j := range res.Journeys {
			t.AppendRow(table.Row{
				j.Source,
				j.Departure.In(loc).Format("2006-01-02 15:04"),
				j.Arrival.In(loc).Format("2006-01-02 15:04"),
				formatDuration(j.Duration),
				formatChanges(j.Changes),
				strings.Join(j.Products, ", "),
				formatPrice(j.Price),
			})
		}
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func formatDuration(d *time.Duration) string {
	if d == nil {
		return "-"
	}
	return fmt.Sprintf("%d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

func formatChanges(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprint(*n)
}

func formatPrice(p *journey.Price) string {
	if p == nil {
		return "-"
	}
	return strings.TrimSpace(fmt.Sprintf("%.2f %s", p.Amount, p.Currency))
}

type ProbeCmd struct{}

func (c *ProbeCmd) Run(app *App) error {
	ctx, cancel := signalContext(app.logger)
	defer cancel()

	if len(app.cfg.Probe.Routes) == 0 {
		return errors.New("no probe routes configured")
	}
	prober := monitor.NewSourceMonitor(app.orchestrator, app.stations, newNotifier(app.cfg, app.logger), app.cfg.Location(), app.logger)
	scheduler.NewScheduler(app.cfg.Probe, prober, app.logger).RunOnce(ctx)
	return nil
}
