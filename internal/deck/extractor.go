package deck

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/venturedesk/pipeline/internal/fields"
)

// Extractor turns a pitch deck PDF into field catalog values.
type Extractor struct {
	gen Generator
}

// NewExtractor creates an extractor over the given generator.
func NewExtractor(gen Generator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract runs the deck through the model and returns the recognized
// catalog values in their spreadsheet-style string form, ready for
// fields.Coerce.
func (e *Extractor) Extract(ctx context.Context, pdf []byte) (map[string]string, error) {
	raw, err := e.gen.GenerateJSON(ctx, BuildPrompt(), pdf)
	if err != nil {
		return nil, fmt.Errorf("deck extraction failed: %w", err)
	}
	return ParseResult(raw)
}

// promptKeys are the catalog fields the model is asked for. Priority is
// a board-side triage label, never printed in a deck.
func promptKeys() []fields.Field {
	var out []fields.Field
	for _, f := range fields.Catalog() {
		if f.Key == "priority" {
			continue
		}
		out = append(out, f)
	}
	return out
}

// BuildPrompt builds the extraction prompt: one line per catalog field
// with its type, and the instruction to answer with a single flat JSON
// object using null for anything the deck does not state.
func BuildPrompt() string {
	var b strings.Builder
	b.WriteString("Extract the key information about the startup from the attached pitch deck PDF.\n\n")
	b.WriteString("Return ONLY a valid JSON object with exactly these keys:\n")
	for _, f := range promptKeys() {
		fmt.Fprintf(&b, "- %q: %s (%s)\n", f.Key, f.Label, f.Type)
	}
	b.WriteString("\nRules:\n")
	b.WriteString("- Use null for any field the deck does not state. Never guess.\n")
	b.WriteString("- Numbers are plain numbers without currency symbols or separators.\n")
	b.WriteString("- Dates use the YYYY-MM-DD format.\n")
	b.WriteString("- Text values keep the language used in the deck.\n")
	return b.String()
}

// ParseResult parses the model reply into catalog key to string value.
// Unknown keys and nulls are dropped; numbers are rendered back to
// their plain string form so the result feeds fields.Coerce like a
// spreadsheet cell would.
func ParseResult(raw string) (map[string]string, error) {
	var reply map[string]any
	if err := json.Unmarshal([]byte(cleanJSONBlock(raw)), &reply); err != nil {
		return nil, fmt.Errorf("model reply is not a JSON object: %w", err)
	}

	out := make(map[string]string)
	for key, value := range reply {
		if _, known := fields.Lookup(key); !known {
			continue
		}
		switch v := value.(type) {
		case nil:
			continue
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out[key] = s
			}
		case float64:
			out[key] = strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return out, nil
}
