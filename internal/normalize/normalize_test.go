package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPONumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"hash stripped", "PO#123", "PO123"},
		{"whitespace stripped", " po 123 ", "PO123"},
		{"upper-cased", "po123", "PO123"},
		{"internal hash and spaces", "# p o # 1 2 3", "PO123"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PONumber(tt.in))
		})
	}
}

func TestPONumberEquivalence(t *testing.T) {
	// All variants of the same PO must normalize identically.
	variants := []string{"PO#123", "po#123", "PO 123", "#PO123", "po123", "  PO#123  "}
	want := PONumber(variants[0])
	for _, v := range variants {
		assert.Equal(t, want, PONumber(v), "variant %q", v)
	}
}

func TestCountry(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"us", "US"},
		{"US", "US"},
		{"USA", "US"},
		{"United States", "US"},
		{"United States of America", "US"},
		{"Canada", "Canada"},
		{"ca", "CA"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Country(tt.in), "input %q", tt.in)
	}
}

func TestZone(t *testing.T) {
	tests := []struct {
		country string
		state   string
		want    string
	}{
		{"US", "ny", "NY"},
		{"US", "New York", "NY"},
		{"US", "texas", "TX"},
		{"US", "Narnia", "Narnia"},
		{"CA", "Ontario", "Ontario"},
		{"CA", "on", "ON"},
		{"US", "", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Zone(tt.country, tt.state), "state %q", tt.state)
	}
}

func TestCalendarDate(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"2025-08-19", "2025-08-19"},
		{"2025-08-19T14:30:00Z", "2025-08-19"},
		{"2025-08-19T14:30:00", "2025-08-19"},
		{"2025-08-19T14:30:00-05:00", "2025-08-19"},
		{"8/19/2025", "2025-08-19"},
		{"08/19/2025", "2025-08-19"},
		{"1/2/2025", "2025-01-02"},
		{"", ""},
		{"not a date at all", "not a date"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CalendarDate(tt.in), "input %q", tt.in)
	}
}

func TestPrice(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"19.99", "19.99", true},
		{"$19.99", "19.99", true},
		{"1,234.50", "1234.50", true},
		{"-5", "-5.00", true},
		{"0", "0.00", true},
		{"", "", false},
		{"-", "", false},
		{".", "", false},
		{"abc", "", false},
	}
	for _, tt := range tests {
		d, ok := Price(tt.in)
		require.Equal(t, tt.wantOK, ok, "input %q", tt.in)
		if ok {
			assert.Equal(t, tt.want, d.StringFixed(2), "input %q", tt.in)
		}
	}
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("buyer@example.com"))
	assert.False(t, ValidEmail("not-an-email"))
	assert.False(t, ValidEmail("a b@example.com"))
	assert.False(t, ValidEmail(""))
}
