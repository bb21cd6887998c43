package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danpilch/railscout/internal/journey"
)

func TestParseDurationText(t *testing.T) {
	cases := map[string]time.Duration{
		"PT4H30M":       4*time.Hour + 30*time.Minute,
		"P1DT2H":        26 * time.Hour,
		"4:30":          4*time.Hour + 30*time.Minute,
		"04:30 h":       4*time.Hour + 30*time.Minute,
		"4h 30m":        4*time.Hour + 30*time.Minute,
		"4h30min":       4*time.Hour + 30*time.Minute,
		"4 Std. 5 Min.": 4*time.Hour + 5*time.Minute,
		"270 min":       270 * time.Minute,
	}
	for in, want := range cases {
		got, err := ParseDurationText(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "PT", "soon"} {
		_, err := ParseDurationText(bad)
		require.Error(t, err, bad)
	}
}

func TestParseChangesText(t *testing.T) {
	for in, want := range map[string]int{"0": 0, "1 change": 1, "2 Umstiege": 2, "Direct": 0, "direkt": 0} {
		got, err := ParseChangesText(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}
	_, err := ParseChangesText("-")
	require.Error(t, err)
}

func TestParseMoney(t *testing.T) {
	cases := map[string]journey.Price{
		"€49.99":       {Amount: 49.99, Currency: "EUR"},
		"49,99 €":      {Amount: 49.99, Currency: "EUR"},
		"1.234,50 EUR": {Amount: 1234.50, Currency: "EUR"},
		"£1,234.50":    {Amount: 1234.50, Currency: "GBP"},
		"29.9":         {Amount: 29.9},
	}
	for in, want := range cases {
		got, err := ParseMoney(in)
		require.NoError(t, err, in)
		require.InDelta(t, want.Amount, got.Amount, 0.0001, in)
		require.Equal(t, want.Currency, got.Currency, in)
	}
	_, err := ParseMoney("sold out")
	require.Error(t, err)
}

func TestParseLegCount(t *testing.T) {
	n, err := ParseLegCount("3")
	require.NoError(t, err)
	require.Equal(t, 2, n)
	_, err = ParseLegCount("0")
	require.Error(t, err)
}
