package workflow

import (
	"strconv"
	"strings"
)

// EvaluateCondition applies one condition to an entity snapshot.
// greater_than/less_than compare numerically when both sides parse as
// numbers and lexicographically otherwise; contains is a
// case-insensitive substring test. Unknown operators never match.
func EvaluateCondition(c Condition, snap Snapshot) bool {
	actual := snap[c.FieldName]

	switch c.Operator {
	case OpEquals:
		return actual == c.Value
	case OpNotEquals:
		return actual != c.Value
	case OpContains:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(c.Value))
	case OpGreaterThan:
		return compare(actual, c.Value) > 0
	case OpLessThan:
		return compare(actual, c.Value) < 0
	default:
		return false
	}
}

// Matches reports whether every condition passes against the snapshot.
// Conditions are AND-ed; an empty list always matches.
func Matches(conditions []Condition, snap Snapshot) bool {
	for _, c := range conditions {
		if !EvaluateCondition(c, snap) {
			return false
		}
	}
	return true
}

func compare(a, b string) int {
	af, aerr := strconv.ParseFloat(strings.TrimSpace(a), 64)
	bf, berr := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if aerr == nil && berr == nil {
		switch {
		case af > bf:
			return 1
		case af < bf:
			return -1
		default:
			return 0
		}
	}
	return strings.Compare(a, b)
}
