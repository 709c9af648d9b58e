package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	snap := Snapshot{"name": "Acme", "ceo_name": "Maria", "mrr": "12000"}

	tests := []struct {
		name     string
		template string
		want     string
	}{
		{"single placeholder", "Hello {{ceo_name}}", "Hello Maria"},
		{"multiple placeholders", "{{name}} has MRR {{mrr}}", "Acme has MRR 12000"},
		{"whitespace inside braces", "Hi {{ ceo_name }}", "Hi Maria"},
		{"missing key stays literal", "Stage: {{status_name}}", "Stage: {{status_name}}"},
		{"no placeholders", "plain text", "plain text"},
		{"repeated placeholder", "{{name}} / {{name}}", "Acme / Acme"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.template, snap))
		})
	}
}
