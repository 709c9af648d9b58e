package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func cond(field string, op Operator, value string) Condition {
	return Condition{FieldName: field, Operator: op, Value: value}
}

func TestEvaluateCondition(t *testing.T) {
	snap := Snapshot{
		"status_name": "Closed",
		"sector":      "FinTech",
		"mrr":         "12000",
		"city":        "",
	}

	tests := []struct {
		name string
		c    Condition
		want bool
	}{
		{"equals match", cond("status_name", OpEquals, "Closed"), true},
		{"equals mismatch", cond("status_name", OpEquals, "Open"), false},
		{"equals is case sensitive", cond("status_name", OpEquals, "closed"), false},
		{"not_equals", cond("status_name", OpNotEquals, "Open"), true},
		{"not_equals mismatch", cond("status_name", OpNotEquals, "Closed"), false},
		{"contains is case insensitive", cond("sector", OpContains, "fin"), true},
		{"contains mismatch", cond("sector", OpContains, "health"), false},
		{"greater_than numeric", cond("mrr", OpGreaterThan, "10000"), true},
		{"greater_than numeric false", cond("mrr", OpGreaterThan, "20000"), false},
		{"less_than numeric", cond("mrr", OpLessThan, "20000"), true},
		{"greater_than lexicographic", cond("status_name", OpGreaterThan, "Aaa"), true},
		{"missing field equals empty", cond("missing", OpEquals, ""), true},
		{"unknown operator never matches", cond("mrr", Operator("matches"), "12000"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvaluateCondition(tt.c, snap))
		})
	}
}

func TestMatchesIsConjunctive(t *testing.T) {
	snap := Snapshot{"status_name": "Closed", "mrr": "500"}

	assert.True(t, Matches(nil, snap))
	assert.True(t, Matches([]Condition{
		cond("status_name", OpEquals, "Closed"),
		cond("mrr", OpLessThan, "1000"),
	}, snap))
	assert.False(t, Matches([]Condition{
		cond("status_name", OpEquals, "Closed"),
		cond("mrr", OpGreaterThan, "1000"),
	}, snap))
}
