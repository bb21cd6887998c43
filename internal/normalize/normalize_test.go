package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danpilch/railscout/internal/journey"
)

var berlin = mustLoad("Europe/Berlin")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func query() journey.Query {
	return journey.Query{
		Origin:      journey.Station{Name: "Hamburg Hbf"},
		Destination: journey.Station{Name: "Amsterdam Centraal"},
		Departure:   time.Date(2025, 6, 1, 0, 0, 0, 0, berlin),
	}
}

var clockMapping = Mapping{TimeLayout: ClockLayout}

func TestClockRowWithoutPrice(t *testing.T) {
	raw := journey.RawResult{
		Source: "bahn-expert",
		Rows: []journey.Fields{
			{"departure": "08:00", "arrival": "12:30", "changes": "0", "products": "ICE, IC, ICE"},
		},
	}

	res, err := Normalize(clockMapping, query(), raw)
	require.NoError(t, err)
	require.Empty(t, res.Dropped)
	require.Len(t, res.Journeys, 1)

	j := res.Journeys[0]
	require.Equal(t, "bahn-expert", j.Source)
	require.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, berlin), j.Departure)
	require.Equal(t, time.Date(2025, 6, 1, 12, 30, 0, 0, berlin), j.Arrival)
	require.NotNil(t, j.Duration)
	require.Equal(t, 4*time.Hour+30*time.Minute, *j.Duration)
	require.NotNil(t, j.Changes)
	require.Equal(t, 0, *j.Changes)
	require.Equal(t, []string{"ICE", "IC"}, j.Products)
	require.Nil(t, j.Price)
}

func TestMissingOptionalFieldsStayAbsent(t *testing.T) {
	raw := journey.RawResult{Rows: []journey.Fields{{"departure": "08:00", "arrival": "09:00", "changes": "n/a", "price": ""}}}
	res, err := Normalize(clockMapping, query(), raw)
	require.NoError(t, err)
	require.Len(t, res.Journeys, 1)
	require.Nil(t, res.Journeys[0].Changes)
	require.Nil(t, res.Journeys[0].Price)
	require.Nil(t, res.Journeys[0].Products)
}

func TestMalformedRowIsDroppedAlone(t *testing.T) {
	raw := journey.RawResult{
		Source: "trainline-web",
		Rows: []journey.Fields{
			{"departure": "08:00", "arrival": "12:30"},
			{"departure": "soon", "arrival": "12:30"},
			{"arrival": "14:00"},
			{"departure": "10:00", "arrival": "14:31", "price": "€49.99"},
		},
	}
	res, err := Normalize(clockMapping, query(), raw)
	require.NoError(t, err)
	require.Len(t, res.Journeys, 2)
	require.Len(t, res.Dropped, 2)
	for _, d := range res.Dropped {
		require.True(t, journey.IsKind(d, journey.KindUpstreamShapeChanged))
	}
	require.Equal(t, &journey.Price{Amount: 49.99, Currency: "EUR"}, res.Journeys[1].Price)
}

func TestClockOvernightArrival(t *testing.T) {
	raw := journey.RawResult{Rows: []journey.Fields{{"departure": "22:10", "arrival": "06:05"}}}
	res, err := Normalize(clockMapping, query(), raw)
	require.NoError(t, err)
	require.Len(t, res.Journeys, 1)
	require.Equal(t, 2, res.Journeys[0].Arrival.Day())
	require.Equal(t, 7*time.Hour+55*time.Minute, *res.Journeys[0].Duration)
}

func TestInconsistentDurationUsesTimes(t *testing.T) {
	raw := journey.RawResult{Rows: []journey.Fields{
		{"departure": "08:00", "arrival": "12:30", "duration": "4h 32m"},
		{"departure": "08:00", "arrival": "12:30", "duration": "7h"},
	}}
	res, err := Normalize(clockMapping, query(), raw)
	require.NoError(t, err)
	require.Equal(t, 4*time.Hour+32*time.Minute, *res.Journeys[0].Duration)
	require.Equal(t, 4*time.Hour+30*time.Minute, *res.Journeys[1].Duration)
}

const bahnBody = `{
  "verbindungen": [
    {
      "umstiegsAnzahl": 1,
      "verbindungsDauerInSeconds": 16200,
      "angebotsPreis": {"betrag": 49.99, "waehrung": "EUR"},
      "verbindungsAbschnitte": [
        {"abfahrtsZeitpunkt": "2025-06-01T08:00:00", "ankunftsZeitpunkt": "2025-06-01T10:00:00", "verkehrsmittel": {"kurzText": "ICE"}},
        {"abfahrtsZeitpunkt": "2025-06-01T10:10:00", "ankunftsZeitpunkt": "2025-06-01T12:30:00", "verkehrsmittel": {"kurzText": "IC"}}
      ]
    },
    {
      "umstiegsAnzahl": 0,
      "verbindungsAbschnitte": [
        {"abfahrtsZeitpunkt": "2025-06-01T09:00:00", "ankunftsZeitpunkt": "2025-06-01T13:00:00", "verkehrsmittel": {"kurzText": "ICE"}}
      ]
    }
  ]
}`

var bahnLikeMapping = Mapping{
	Rows: "verbindungen",
	Paths: map[Field]string{
		FieldDeparture: "verbindungsAbschnitte.0.abfahrtsZeitpunkt",
		FieldArrival:   "verbindungsAbschnitte|@reverse|0.ankunftsZeitpunkt",
		FieldDuration:  "verbindungsDauerInSeconds",
		FieldChanges:   "umstiegsAnzahl",
		FieldProducts:  "verbindungsAbschnitte.#.verkehrsmittel.kurzText",
		FieldPrice:     "angebotsPreis.betrag",
		FieldCurrency:  "angebotsPreis.waehrung",
	},
	TimeLayout:    "2006-01-02T15:04:05",
	Location:      berlin,
	ParseDuration: ParseSeconds,
}

func TestJSONMapping(t *testing.T) {
	res, err := Normalize(bahnLikeMapping, query(), journey.RawResult{Source: "bahn", JSON: []byte(bahnBody)})
	require.NoError(t, err)
	require.Empty(t, res.Dropped)
	require.Len(t, res.Journeys, 2)

	first := res.Journeys[0]
	require.Equal(t, time.Date(2025, 6, 1, 12, 30, 0, 0, berlin), first.Arrival)
	require.Equal(t, 4*time.Hour+30*time.Minute, *first.Duration)
	require.Equal(t, 1, *first.Changes)
	require.Equal(t, []string{"ICE", "IC"}, first.Products)
	require.Equal(t, &journey.Price{Amount: 49.99, Currency: "EUR"}, first.Price)

	second := res.Journeys[1]
	require.Nil(t, second.Price)
	require.Equal(t, 4*time.Hour, *second.Duration)
}

func TestJSONShapeChanged(t *testing.T) {
	_, err := Normalize(bahnLikeMapping, query(), journey.RawResult{Source: "bahn", JSON: []byte(`{"connections": []}`)})
	require.True(t, journey.IsKind(err, journey.KindUpstreamShapeChanged))

	_, err = Normalize(bahnLikeMapping, query(), journey.RawResult{Source: "bahn", JSON: []byte(`<html>`)})
	require.True(t, journey.IsKind(err, journey.KindUpstreamShapeChanged))
}

func TestJSONEmptyListIsValid(t *testing.T) {
	res, err := Normalize(bahnLikeMapping, query(), journey.RawResult{Source: "bahn", JSON: []byte(`{"verbindungen": []}`)})
	require.NoError(t, err)
	require.NotNil(t, res.Journeys)
	require.Empty(t, res.Journeys)
}

func TestObjectRows(t *testing.T) {
	body := `{"data":{"journeys":{"a":{"departAt":"2025-06-01T08:00:00+02:00","arriveAt":"2025-06-01T12:30:00+02:00","duration":"PT4H30M","legs":["l1"]}}}}`
	m := Mapping{
		Rows: "data.journeys",
		Paths: map[Field]string{
			FieldDeparture: "departAt",
			FieldArrival:   "arriveAt",
			FieldDuration:  "duration",
			FieldChanges:   "legs.#",
		},
		ParseChanges: ParseLegCount,
	}
	res, err := Normalize(m, query(), journey.RawResult{JSON: []byte(body)})
	require.NoError(t, err)
	require.Len(t, res.Journeys, 1)
	require.Equal(t, 0, *res.Journeys[0].Changes)
	require.Equal(t, 4*time.Hour+30*time.Minute, *res.Journeys[0].Duration)
}
