// Package server exposes the acquisition engine over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/danpilch/railscout/internal/acquire"
	"github.com/danpilch/railscout/internal/journey"
)

// Acquirer runs queries against named sources.
type Acquirer interface {
	AcquireAll(ctx context.Context, q journey.Query, sourceIDs []string) []acquire.Result
	Sources() []string
}

// Stations resolves a caller supplied station name.
type Stations interface {
	Lookup(name string) journey.Station
}

type Options struct {
	DefaultSources []string
	RequestTimeout time.Duration
	Location       *time.Location
	Logger         *logrus.Logger
}

type Handler struct {
	acquirer Acquirer
	stations Stations
	opts     Options
	logger   *logrus.Logger
}

func NewHandler(acquirer Acquirer, stations Stations, opts Options) *Handler {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 2 * time.Minute
	}
	return &Handler{acquirer: acquirer, stations: stations, opts: opts, logger: opts.Logger}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Get("/journeys", h.HandleJourneys)
	router.Get("/sources", h.HandleSources)
	router.Get("/healthz", h.HandleHealth)
}

// Router returns the handler mounted on a chi router with request ids,
// panic recovery and request logging.
func (h *Handler) Router() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(h.logRequests)
	h.RegisterRoutes(router)
	return otelhttp.NewHandler(router, "railscout")
}

func (h *Handler) HandleJourneys(w http.ResponseWriter, r *http.Request) {
	q, sources, err := h.parseQuery(r)
	if err != nil {
		h.writeJSON(w, statusOf(err), map[string]any{"error": newErrorDTO(err)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.opts.RequestTimeout)
	defer cancel()

	results := h.acquirer.AcquireAll(ctx, q, sources)

	status := http.StatusOK
	if len(results) == 1 && results[0].Err != nil {
		status = statusOf(results[0].Err)
	}
	resp := searchResponse{Results: make([]resultDTO, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, newResultDTO(res))
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) parseQuery(r *http.Request) (journey.Query, []string, error) {
	params := r.URL.Query()

	origin := strings.TrimSpace(params.Get("origin"))
	destination := strings.TrimSpace(params.Get("destination"))
	if origin == "" || destination == "" {
		return journey.Query{}, nil, journey.InvalidQuery("", "origin and destination are required")
	}
	departure, err := journey.ParseDeparture(params.Get("departureDate"), h.opts.Location)
	if err != nil {
		return journey.Query{}, nil, journey.InvalidQuery("", err.Error())
	}

	var sources []string
	for _, id := range strings.Split(params.Get("source"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			sources = append(sources, id)
		}
	}
	if len(sources) == 0 {
		sources = h.opts.DefaultSources
	}
	if len(sources) == 0 {
		return journey.Query{}, nil, journey.InvalidQuery("", "no source selected")
	}

	q := journey.Query{
		Origin:      h.stations.Lookup(origin),
		Destination: h.stations.Lookup(destination),
		Departure:   departure,
		Passengers:  journey.DefaultPassengers(),
	}
	if err := q.Validate(); err != nil {
		return journey.Query{}, nil, err
	}
	return q, sources, nil
}

func (h *Handler) HandleSources(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"sources":  h.acquirer.Sources(),
		"defaults": h.opts.DefaultSources,
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.WithField("error", err).Warn("failed to write response")
	}
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.WithFields(logrus.Fields{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(start),
		}).Info("request served")
	})
}
