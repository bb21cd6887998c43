package trainline

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/danpilch/railscout/internal/api"
	"github.com/danpilch/railscout/internal/journey"
	"github.com/danpilch/railscout/internal/normalize"
	"github.com/danpilch/railscout/internal/session"
)

var tracer = otel.Tracer("api/trainline")

const (
	SourceID       = "trainline"
	DefaultBaseURL = "https://www.thetrainline.com"
	searchPath     = "/api/journey-search-variant-1/"
)

// DefaultUserAgent is the desktop Chrome the captured requests came from.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configure a Client.
type Options struct {
	BaseURL       string
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Logger        *logrus.Logger
}

// Client replays the trainline web client's journey search.
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *logrus.Logger
}

// NewClient creates a new trainline journey-search client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RatePerSecond <= 0 {
		opts.RatePerSecond = 1
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Client{
		baseURL:   opts.BaseURL,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		logger:    opts.Logger,
	}
}

// ID returns the trainline source id.
func (c *Client) ID() string { return SourceID }

// Validate checks that both stations carry a trainline URN.
func (c *Client) Validate(q journey.Query) error {
	if _, ok := q.Origin.Ref(SourceID); !ok {
		return journey.InvalidQuery(SourceID, fmt.Sprintf("no location urn for origin %q", q.Origin.Name))
	}
	if _, ok := q.Destination.Ref(SourceID); !ok {
		return journey.InvalidQuery(SourceID, fmt.Sprintf("no location urn for destination %q", q.Destination.Name))
	}
	return nil
}

func passengers(q journey.Query) []Passenger {
	list := q.Passengers
	if len(list) == 0 {
		list = journey.DefaultPassengers()
	}
	var out []Passenger
	for _, p := range list {
		for i := 0; i < p.Count; i++ {
			out = append(out, Passenger{ID: strconv.Itoa(len(out) + 1), Type: string(p.Type)})
		}
	}
	return out
}

func (c *Client) searchRequest(q journey.Query) SearchRequest {
	origin, _ := q.Origin.Ref(SourceID)
	destination, _ := q.Destination.Ref(SourceID)
	return SearchRequest{
		Passengers: passengers(q),
		IsEurope:   true,
		Cards:      []string{},
		TransitDefinitions: []TransitDefinition{{
			Direction:   DirectionOutward,
			Origin:      origin,
			Destination: destination,
			JourneyDate: JourneyDate{Type: DepartAfter, Time: q.Departure.Format("2006-01-02T15:04:05")},
		}},
		Type:            SearchSingle,
		MaximumJourneys: 5,
		IncludeRealtime: true,
		TransportModes:  []string{ModeMixed},
	}
}

// Fetch posts one journey search and returns the raw response body.
func (c *Client) Fetch(ctx context.Context, q journey.Query, sess *session.Session) (journey.RawResult, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()

	if err := c.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, "rate limit wait")
		return journey.RawResult{}, journey.Timeout(SourceID, err)
	}

	httpClient := api.NewHTTP(api.ClientOptions{
		Source:    SourceID,
		BaseURL:   c.baseURL,
		UserAgent: c.userAgent,
		Timeout:   c.timeout,
		Logger:    c.logger,
	}, sess)

	res, err := httpClient.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"accept":           "application/json",
			"accept-language":  "en-GB",
			"content-type":     "application/json",
			"origin":           c.baseURL,
			"referer":          c.baseURL + "/book/results",
			"x-correlation-id": sess.CorrelationID,
		}).
		SetBody(c.searchRequest(q)).
		Post(searchPath)
	sess.Touch()
	if err != nil {
		span.SetStatus(codes.Error, "request failed")
		return journey.RawResult{}, api.Classify(ctx, SourceID, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))
	if err := api.CheckResponse(SourceID, res); err != nil {
		span.SetStatus(codes.Error, "rejected")
		return journey.RawResult{}, err
	}

	return journey.RawResult{Source: SourceID, JSON: res.Body()}, nil
}

// journeys in a search response are keyed by id; legs reference the leg table.
var mapping = normalize.Mapping{
	Rows: "data.journeySearch.journeys",
	Paths: map[normalize.Field]string{
		normalize.FieldDeparture: "departAt",
		normalize.FieldArrival:   "arriveAt",
		normalize.FieldDuration:  "duration",
		normalize.FieldChanges:   "legs.#",
	},
	TimeLayout:   time.RFC3339,
	ParseChanges: normalize.ParseLegCount,
}

// Mapping returns the normalization table for journey-search responses.
func (c *Client) Mapping() normalize.Mapping { return mapping }
