package normalize

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/danpilch/railscout/internal/journey"
)

var (
	isoDurationRe   = regexp.MustCompile(`(?i)^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)
	clockDurationRe = regexp.MustCompile(`^(\d{1,2}):(\d{2})`)
	hoursRe         = regexp.MustCompile(`(?i)(\d+)\s*(?:hrs|hr|std|h)`)
	minutesRe       = regexp.MustCompile(`(?i)(\d+)\s*(?:mins|min|m)`)
	clockRe         = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
	digitsRe        = regexp.MustCompile(`\d+`)
	amountRe        = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
)

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// ParseDurationText reads the duration notations booking sites use:
// ISO 8601 ("PT4H30M"), clock style ("4:30") and unit text ("4h 30min").
func ParseDurationText(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if m := isoDurationRe.FindStringSubmatch(s); m != nil && s != "P" && !strings.EqualFold(s, "PT") {
		d := time.Duration(atoi(m[1]))*24*time.Hour +
			time.Duration(atoi(m[2]))*time.Hour +
			time.Duration(atoi(m[3]))*time.Minute +
			time.Duration(atoi(m[4]))*time.Second
		return d, nil
	}
	if m := clockDurationRe.FindStringSubmatch(s); m != nil {
		return time.Duration(atoi(m[1]))*time.Hour + time.Duration(atoi(m[2]))*time.Minute, nil
	}

	h := hoursRe.FindStringSubmatch(s)
	m := minutesRe.FindStringSubmatch(s)
	if h == nil && m == nil {
		return 0, fmt.Errorf("unrecognised duration %q", s)
	}
	var d time.Duration
	if h != nil {
		d += time.Duration(atoi(h[1])) * time.Hour
	}
	if m != nil {
		d += time.Duration(atoi(m[1])) * time.Minute
	}
	return d, nil
}

// ParseSeconds reads a duration given as a number of seconds.
func ParseSeconds(s string) (time.Duration, error) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid seconds %q: %w", s, err)
	}
	return time.Duration(secs * float64(time.Second)), nil
}

// ParseChangesText reads "0", "1 change", "2 Umstiege" or "Direct".
func ParseChangesText(s string) (int, error) {
	lower := strings.ToLower(strings.TrimSpace(s))
	if strings.Contains(lower, "direct") || strings.Contains(lower, "direkt") {
		return 0, nil
	}
	digits := digitsRe.FindString(lower)
	if digits == "" {
		return 0, fmt.Errorf("unrecognised change count %q", s)
	}
	return strconv.Atoi(digits)
}

// ParseLegCount turns a number of legs into a number of changes.
func ParseLegCount(s string) (int, error) {
	legs, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid leg count %q: %w", s, err)
	}
	if legs < 1 {
		return 0, fmt.Errorf("journey without legs")
	}
	return legs - 1, nil
}

var currencySymbols = []struct {
	token string
	code  string
}{
	{"€", "EUR"},
	{"EUR", "EUR"},
	{"£", "GBP"},
	{"GBP", "GBP"},
	{"$", "USD"},
	{"USD", "USD"},
	{"CHF", "CHF"},
}

// ParseMoney reads a price such as "€49.99", "49,99 €" or "1.234,50 EUR".
// A bare number is returned without a currency.
func ParseMoney(s string) (journey.Price, error) {
	s = strings.TrimSpace(s)
	raw := amountRe.FindString(s)
	if raw == "" {
		return journey.Price{}, fmt.Errorf("no amount in %q", s)
	}

	var p journey.Price
	upper := strings.ToUpper(s)
	for _, c := range currencySymbols {
		if strings.Contains(upper, c.token) {
			p.Currency = c.code
			break
		}
	}

	lastDot := strings.LastIndex(raw, ".")
	lastComma := strings.LastIndex(raw, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			raw = strings.ReplaceAll(raw, ".", "")
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	case lastComma >= 0:
		if len(raw)-lastComma-1 == 2 {
			raw = strings.Replace(raw, ",", ".", 1)
		} else {
			raw = strings.ReplaceAll(raw, ",", "")
		}
	}

	amount, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return journey.Price{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	p.Amount = amount
	return p, nil
}

// SplitProducts splits a comma separated product list, dropping blanks and repeats.
func SplitProducts(s string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" || seen[part] {
			continue
		}
		seen[part] = true
		out = append(out, part)
	}
	return out
}

// parseClock finds the first HH:MM in s.
func parseClock(s string) (hour, minute int, err error) {
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, fmt.Errorf("no clock time in %q", s)
	}
	hour, minute = atoi(m[1]), atoi(m[2])
	if hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid clock time %q", s)
	}
	return hour, minute, nil
}
