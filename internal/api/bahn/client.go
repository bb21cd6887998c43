package bahn

import (
	"context"
	"fmt"
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

var tracer = otel.Tracer("api/bahn")

const searchPath = "/web/api/angebote/fahrplan"

// DefaultUserAgent is the desktop Chrome the captured requests came from.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/135.0.0.0 Safari/537.36"

// Flavor is one deployment of the booking backend. The domestic and the
// international site share the API but differ in host, language and the
// client hints their web client sends.
type Flavor struct {
	ID             string
	BaseURL        string
	AcceptLanguage string
	Referer        string
	ClientHints    bool
}

var (
	Domestic = Flavor{
		ID:             "bahn",
		BaseURL:        "https://www.bahn.de",
		AcceptLanguage: "de",
		Referer:        "https://www.bahn.de/buchung/fahrplan/suche",
		ClientHints:    true,
	}
	International = Flavor{
		ID:             "bahn-int",
		BaseURL:        "https://int.bahn.de",
		AcceptLanguage: "en",
		Referer:        "https://int.bahn.de/en/buchung/fahrplan/suche",
	}
)

// Berlin is the timezone the backend reads request times in and writes
// response times in.
var Berlin = mustLoad("Europe/Berlin")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Options configure a Client.
type Options struct {
	Flavor        Flavor
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Logger        *logrus.Logger
}

// Client emulates the booking web client's timetable search.
type Client struct {
	flavor    Flavor
	userAgent string
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *logrus.Logger
}

// NewClient creates a new timetable client for opts.Flavor.
func NewClient(opts Options) *Client {
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
		flavor:    opts.Flavor,
		userAgent: opts.UserAgent,
		timeout:   opts.Timeout,
		limiter:   rate.NewLimiter(rate.Limit(opts.RatePerSecond), 1),
		logger:    opts.Logger,
	}
}

// ID returns the flavor's source id.
func (c *Client) ID() string { return c.flavor.ID }

// Validate checks that both stations have a locator for this flavor.
func (c *Client) Validate(q journey.Query) error {
	if _, ok := q.Origin.Ref(c.flavor.ID); !ok {
		return journey.InvalidQuery(c.flavor.ID, fmt.Sprintf("no locator for origin %q", q.Origin.Name))
	}
	if _, ok := q.Destination.Ref(c.flavor.ID); !ok {
		return journey.InvalidQuery(c.flavor.ID, fmt.Sprintf("no locator for destination %q", q.Destination.Name))
	}
	for _, p := range q.Passengers {
		if p.Type != journey.PassengerAdult {
			return journey.InvalidQuery(c.flavor.ID, fmt.Sprintf("passenger type %q not supported", p.Type))
		}
	}
	return nil
}

func (c *Client) searchRequest(q journey.Query) SearchRequest {
	origin, _ := q.Origin.Ref(c.flavor.ID)
	destination, _ := q.Destination.Ref(c.flavor.ID)
	return SearchRequest{
		AbfahrtsHalt:     origin,
		AnfrageZeitpunkt: q.Departure.In(Berlin).Format("2006-01-02T15:04:05"),
		AnkunftsHalt:     destination,
		AnkunftSuche:     SearchByDeparture,
		Klasse:           SecondClass,
		Produktgattungen: Products,
		Reisende: []Reisende{{
			Typ:            TravellerAdult,
			Ermaessigungen: []Ermaessigung{{Art: NoDiscount, Klasse: Classless}},
			Alter:          []int{},
			Anzahl:         q.PassengerCount(),
		}},
		SchnelleVerbindungen: true,
	}
}

func (c *Client) headers(sess *session.Session) map[string]string {
	h := map[string]string{
		"accept":           "application/json",
		"accept-language":  c.flavor.AcceptLanguage,
		"content-type":     "application/json; charset=UTF-8",
		"origin":           c.flavor.BaseURL,
		"priority":         "u=1, i",
		"referer":          c.flavor.Referer,
		"sec-fetch-dest":   "empty",
		"sec-fetch-mode":   "cors",
		"sec-fetch-site":   "same-origin",
		"x-correlation-id": sess.CorrelationID,
	}
	if c.flavor.ClientHints {
		h["sec-ch-ua"] = `"Google Chrome";v="135", "Not-A.Brand";v="8", "Chromium";v="135"`
		h["sec-ch-ua-mobile"] = "?0"
		h["sec-ch-ua-platform"] = `"Windows"`
	}
	return h
}

// Fetch posts one timetable search. Cookies the backend sets are kept in the
// session whatever the status; a non-2xx status is returned as
// UpstreamRejected without retrying.
func (c *Client) Fetch(ctx context.Context, q journey.Query, sess *session.Session) (journey.RawResult, error) {
	ctx, span := tracer.Start(ctx, "client:Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("source", c.flavor.ID))

	if err := c.limiter.Wait(ctx); err != nil {
		span.SetStatus(codes.Error, "rate limit wait")
		return journey.RawResult{}, journey.Timeout(c.flavor.ID, err)
	}

	httpClient := api.NewHTTP(api.ClientOptions{
		Source:    c.flavor.ID,
		BaseURL:   c.flavor.BaseURL,
		UserAgent: c.userAgent,
		Timeout:   c.timeout,
		Logger:    c.logger,
	}, sess)

	res, err := httpClient.R().
		SetContext(ctx).
		SetHeaders(c.headers(sess)).
		SetBody(c.searchRequest(q)).
		Post(searchPath)
	sess.Touch()
	if err != nil {
		span.SetStatus(codes.Error, "request failed")
		return journey.RawResult{}, api.Classify(ctx, c.flavor.ID, err)
	}
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode()))
	if err := api.CheckResponse(c.flavor.ID, res); err != nil {
		span.SetStatus(codes.Error, "rejected")
		return journey.RawResult{}, err
	}

	return journey.RawResult{Source: c.flavor.ID, JSON: res.Body()}, nil
}

// mapping reads the connection list of a timetable response.
var mapping = normalize.Mapping{
	Rows: "verbindungen",
	Paths: map[normalize.Field]string{
		normalize.FieldDeparture: "verbindungsAbschnitte.0.abfahrtsZeitpunkt",
		normalize.FieldArrival:   "verbindungsAbschnitte|@reverse|0.ankunftsZeitpunkt",
		normalize.FieldDuration:  "verbindungsDauerInSeconds",
		normalize.FieldChanges:   "umstiegsAnzahl",
		normalize.FieldProducts:  "verbindungsAbschnitte.#.verkehrsmittel.kurzText",
		normalize.FieldPrice:     "angebotsPreis.betrag",
		normalize.FieldCurrency:  "angebotsPreis.waehrung",
	},
	TimeLayout:    "2006-01-02T15:04:05",
	Location:      Berlin,
	ParseDuration: normalize.ParseSeconds,
}

// Mapping returns the normalization table for timetable responses.
func (c *Client) Mapping() normalize.Mapping { return mapping }
