// Package fields provides the static catalog of importable and editable
// startup fields, along with type validation and coercion shared by the
// import pipeline and workflow attribute updates.
package fields

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Type is the primitive type of a catalog field.
type Type string

const (
	TypeString Type = "string"
	TypeEmail  Type = "email"
	TypeURL    Type = "url"
	TypeNumber Type = "number"
	TypeDate   Type = "date"
)

// Field describes one importable/editable startup field.
type Field struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Required bool   `json:"required"`
	Type     Type   `json:"type"`
}

// catalog is ordered: template columns and API field listings follow
// this order.
var catalog = []Field{
	{Key: "name", Label: "Startup Name", Required: true, Type: TypeString},
	{Key: "description", Label: "Description", Required: false, Type: TypeString},
	{Key: "website", Label: "Website", Required: false, Type: TypeURL},
	{Key: "sector", Label: "Sector", Required: false, Type: TypeString},
	{Key: "business_model", Label: "Business Model", Required: false, Type: TypeString},
	{Key: "city", Label: "City", Required: false, Type: TypeString},
	{Key: "state", Label: "State", Required: false, Type: TypeString},
	{Key: "ceo_name", Label: "CEO Name", Required: true, Type: TypeString},
	{Key: "ceo_email", Label: "CEO Email", Required: true, Type: TypeEmail},
	{Key: "ceo_phone", Label: "CEO Phone", Required: false, Type: TypeString},
	{Key: "mrr", Label: "MRR", Required: false, Type: TypeNumber},
	{Key: "client_count", Label: "Client Count", Required: false, Type: TypeNumber},
	{Key: "accumulated_revenue", Label: "Accumulated Revenue", Required: false, Type: TypeNumber},
	{Key: "total_revenue", Label: "Total Revenue", Required: false, Type: TypeNumber},
	{Key: "tam", Label: "TAM", Required: false, Type: TypeNumber},
	{Key: "sam", Label: "SAM", Required: false, Type: TypeNumber},
	{Key: "som", Label: "SOM", Required: false, Type: TypeNumber},
	{Key: "founded_date", Label: "Founded Date", Required: false, Type: TypeDate},
	{Key: "market_analysis", Label: "Market Analysis", Required: false, Type: TypeString},
	{Key: "differentials", Label: "Differentials", Required: false, Type: TypeString},
	{Key: "competitors", Label: "Competitors", Required: false, Type: TypeString},
	{Key: "priority", Label: "Priority", Required: false, Type: TypeString},
}

var byKey = func() map[string]Field {
	m := make(map[string]Field, len(catalog))
	for _, f := range catalog {
		m[f.Key] = f
	}
	return m
}()

// Catalog returns all fields in declaration order.
func Catalog() []Field {
	out := make([]Field, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the field for the given key.
func Lookup(key string) (Field, bool) {
	f, ok := byKey[key]
	return f, ok
}

// RequiredKeys returns the keys every imported row must provide.
func RequiredKeys() []string {
	var keys []string
	for _, f := range catalog {
		if f.Required {
			keys = append(keys, f.Key)
		}
	}
	return keys
}

// emailRe accepts the simple local@domain.tld shape; it is a gate
// against obvious typos, not a full RFC 5322 validator.
var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// numberJunkRe strips currency symbols and other non-numeric noise,
// keeping digits, separators and sign.
var numberJunkRe = regexp.MustCompile(`[^0-9,.\-]`)

// dateLayouts are the accepted import date formats, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"02-01-2006",
}

// Coerce validates and converts a raw cell value for the field with the
// given key. It returns the coerced value (string, float64, time.Time
// or nil), a warning message for recoverable problems, and an error for
// rejecting ones.
//
// Per-type contract:
//   - required + empty      -> error
//   - optional + empty      -> nil value, no issue
//   - email: format error   -> error
//   - url: missing scheme   -> warning (value kept), unparseable -> error
//   - number/date: bad parse -> warning, value stored as nil
//   - string: trimmed passthrough
func Coerce(key, raw string) (value any, warning string, err error) {
	f, ok := byKey[key]
	if !ok {
		return nil, "", fmt.Errorf("unknown field: %s", key)
	}

	raw = strings.TrimSpace(raw)
	if raw == "" {
		if f.Required {
			return nil, "", fmt.Errorf("%s is required", f.Label)
		}
		return nil, "", nil
	}

	switch f.Type {
	case TypeEmail:
		if !emailRe.MatchString(raw) {
			return nil, "", fmt.Errorf("invalid email format: %s", raw)
		}
		return raw, "", nil

	case TypeURL:
		if !strings.Contains(raw, "://") {
			return raw, fmt.Sprintf("URL %q has no scheme; consider http:// or https://", raw), nil
		}
		if _, perr := url.ParseRequestURI(raw); perr != nil {
			return nil, "", fmt.Errorf("invalid URL: %s", raw)
		}
		return raw, "", nil

	case TypeNumber:
		n, perr := parseNumber(raw)
		if perr != nil {
			return nil, fmt.Sprintf("could not parse %q as a number; stored empty", raw), nil
		}
		return n, "", nil

	case TypeDate:
		t, perr := parseDate(raw)
		if perr != nil {
			return nil, fmt.Sprintf("could not parse %q as a date; stored empty", raw), nil
		}
		return t, "", nil

	default:
		return raw, "", nil
	}
}

// parseNumber normalizes a human-entered numeric string (currency
// symbols, thousand separators, decimal comma) and parses it as float.
func parseNumber(raw string) (float64, error) {
	s := numberJunkRe.ReplaceAllString(raw, "")
	if s == "" {
		return 0, fmt.Errorf("no digits in %q", raw)
	}

	// When both separators appear the rightmost one is the decimal
	// mark ("1.234,56" -> 1234.56, "1,234.56" -> 1234.56). A comma on
	// its own is a decimal comma.
	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case lastComma >= 0 && lastDot >= 0:
		s = strings.ReplaceAll(s, ",", "")
	case lastComma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	return strconv.ParseFloat(s, 64)
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date format: %s", raw)
}
