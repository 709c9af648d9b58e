package fields

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogRequiredKeys(t *testing.T) {
	assert.Equal(t, []string{"name", "ceo_name", "ceo_email"}, RequiredKeys())
}

func TestLookup(t *testing.T) {
	f, ok := Lookup("ceo_email")
	require.True(t, ok)
	assert.Equal(t, TypeEmail, f.Type)
	assert.True(t, f.Required)

	_, ok = Lookup("no_such_field")
	assert.False(t, ok)
}

func TestCoerceEmail(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", "a@b.com", false},
		{"valid with subdomain", "ceo@mail.startup.io", false},
		{"not an email", "not-an-email", true},
		{"missing tld", "a@b", true},
		{"spaces", "a b@c.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, warn, err := Coerce("ceo_email", tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, warn)
			assert.Equal(t, tt.raw, v)
		})
	}
}

func TestCoerceEmailRequiredEmpty(t *testing.T) {
	_, _, err := Coerce("ceo_email", "  ")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestCoerceURL(t *testing.T) {
	v, warn, err := Coerce("website", "https://example.com")
	require.NoError(t, err)
	assert.Empty(t, warn)
	assert.Equal(t, "https://example.com", v)

	// Missing scheme is a warning, not an error; value is kept.
	v, warn, err = Coerce("website", "example.com")
	require.NoError(t, err)
	assert.Contains(t, warn, "no scheme")
	assert.Equal(t, "example.com", v)

	// Unparseable with scheme present is an error.
	_, _, err = Coerce("website", "http://%zz")
	require.Error(t, err)
}

func TestCoerceNumber(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1000", 1000},
		{"1.234,56", 1234.56},
		{"R$ 5.000,00", 5000},
		{"42,5", 42.5},
		{"$1,000.00", 1000}, // comma as thousands after junk strip
		{"-300", -300},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v, warn, err := Coerce("mrr", tt.raw)
			require.NoError(t, err)
			assert.Empty(t, warn)
			assert.InDelta(t, tt.want, v.(float64), 0.001)
		})
	}
}

func TestCoerceNumberBadParseWarns(t *testing.T) {
	v, warn, err := Coerce("mrr", "abc")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Contains(t, warn, "number")
}

func TestCoerceDate(t *testing.T) {
	v, warn, err := Coerce("founded_date", "2021-03-15")
	require.NoError(t, err)
	assert.Empty(t, warn)
	assert.Equal(t, time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC), v)

	v, warn, err = Coerce("founded_date", "15/03/2021")
	require.NoError(t, err)
	assert.Empty(t, warn)
	assert.Equal(t, time.Date(2021, 3, 15, 0, 0, 0, 0, time.UTC), v)

	v, warn, err = Coerce("founded_date", "sometime in 2021")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Contains(t, warn, "date")
}

func TestCoerceOptionalEmpty(t *testing.T) {
	v, warn, err := Coerce("mrr", "")
	require.NoError(t, err)
	assert.Nil(t, v)
	assert.Empty(t, warn)
}

func TestCoerceUnknownField(t *testing.T) {
	_, _, err := Coerce("bogus", "x")
	require.Error(t, err)
}
