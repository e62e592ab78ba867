// Package normalize canonicalizes purchase-order numbers, country/state
// codes, dates and monetary strings into comparable forms. All comparisons
// between MarketTime and Shopify values go through this package.
package normalize

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var poStripPattern = regexp.MustCompile(`[#\s]`)

// PONumber strips '#' and all whitespace and upper-cases, so PO numbers
// that differ only by punctuation, case or spacing compare equal. This is
// the sole de-duplication key within a run and across systems.
func PONumber(po string) string {
	return strings.ToUpper(poStripPattern.ReplaceAllString(strings.TrimSpace(po), ""))
}

// usStateAbbr maps full US state names (lower-cased) to USPS codes.
var usStateAbbr = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR",
	"california": "CA", "colorado": "CO", "connecticut": "CT", "delaware": "DE",
	"district of columbia": "DC", "florida": "FL", "georgia": "GA", "hawaii": "HI",
	"idaho": "ID", "illinois": "IL", "indiana": "IN", "iowa": "IA",
	"kansas": "KS", "kentucky": "KY", "louisiana": "LA", "maine": "ME",
	"maryland": "MD", "massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT", "nebraska": "NE",
	"nevada": "NV", "new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM",
	"new york": "NY", "north carolina": "NC", "north dakota": "ND", "ohio": "OH",
	"oklahoma": "OK", "oregon": "OR", "pennsylvania": "PA", "rhode island": "RI",
	"south carolina": "SC", "south dakota": "SD", "tennessee": "TN", "texas": "TX",
	"utah": "UT", "vermont": "VT", "virginia": "VA", "washington": "WA",
	"west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// Country normalizes a country value to an ISO 3166-1 alpha-2 code where
// possible. Two-letter inputs are upper-cased; "United States" variants map
// to "US"; anything else passes through unchanged.
func Country(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if len(v) == 2 {
		return strings.ToUpper(v)
	}
	upper := strings.ToUpper(v)
	if strings.HasPrefix(strings.ToLower(v), "united states") || upper == "USA" {
		return "US"
	}
	return v
}

// Zone normalizes a state/province for the given country code. Two-letter
// inputs are upper-cased; full US state names map to USPS abbreviations;
// anything else passes through.
func Zone(countryCode, state string) string {
	s := strings.TrimSpace(state)
	if s == "" {
		return ""
	}
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	if strings.ToUpper(countryCode) == "US" {
		if abbr, ok := usStateAbbr[strings.ToLower(s)]; ok {
			return abbr
		}
	}
	return s
}

var (
	isoDatePattern = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})`)
	usDatePattern  = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)
)

// CalendarDate coerces common date strings (YYYY-MM-DD, ISO with time,
// MM/DD/YYYY) to YYYY-MM-DD. Unparseable non-empty input degrades to its
// first ten characters rather than failing.
func CalendarDate(v string) string {
	s := strings.TrimSpace(v)
	if s == "" {
		return ""
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if m := isoDatePattern.FindStringSubmatch(s); m != nil {
		return m[1] + "-" + m[2] + "-" + m[3]
	}
	if m := usDatePattern.FindStringSubmatch(s); m != nil {
		if t, err := time.Parse("1/2/2006", m[1]+"/"+m[2]+"/"+m[3]); err == nil {
			return t.Format("2006-01-02")
		}
	}
	if len(s) > 10 {
		return s[:10]
	}
	return s
}

var priceCleanPattern = regexp.MustCompile(`[^0-9.\-]`)

// Price parses a monetary string ("$1,234.50", "19.99") into a decimal.
// Returns false for empty or unparseable input; data-quality failures are
// degraded by the caller (zero price), never fatal.
func Price(v string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(v)
	if s == "" {
		return decimal.Zero, false
	}
	cleaned := priceCleanPattern.ReplaceAllString(strings.ReplaceAll(s, ",", ""), "")
	switch cleaned {
	case "", "-", ".", "-.":
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidEmail reports whether s looks like a plausible email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}
