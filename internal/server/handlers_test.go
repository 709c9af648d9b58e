package server

import (
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/venturedesk/pipeline/internal/workflow"
)

func TestPagination_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/startups", nil)

	limit, offset, page := pagination(r)
	assert.Equal(t, 50, limit)
	assert.Equal(t, 0, offset)
	assert.Equal(t, 1, page)
}

func TestPagination_PageAndLimit(t *testing.T) {
	r := httptest.NewRequest("GET", "/startups?page=3&limit=20", nil)

	limit, offset, page := pagination(r)
	assert.Equal(t, 20, limit)
	assert.Equal(t, 40, offset)
	assert.Equal(t, 3, page)
}

func TestPagination_IgnoresBadValues(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"negative page", "?page=-1"},
		{"zero limit", "?limit=0"},
		{"limit over cap", "?limit=5000"},
		{"not a number", "?page=abc&limit=xyz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/startups"+tt.query, nil)

			limit, offset, page := pagination(r)
			assert.Equal(t, 50, limit)
			assert.Equal(t, 0, offset)
			assert.Equal(t, 1, page)
		})
	}
}

func TestChangedCatalogFields(t *testing.T) {
	before := workflow.Snapshot{
		"name":     "Acme",
		"sector":   "fintech",
		"mrr":      "1000",
		"priority": "medium",
	}
	after := workflow.Snapshot{
		"name":     "Acme",
		"sector":   "healthtech",
		"mrr":      "2500",
		"priority": "medium",
	}

	changed := changedCatalogFields(before, after)
	assert.Equal(t, []string{"sector", "mrr"}, changed)
}

func TestChangedCatalogFields_ClearedAndAdded(t *testing.T) {
	before := workflow.Snapshot{"name": "Acme", "website": "http://acme.example"}
	after := workflow.Snapshot{"name": "Acme", "city": "Austin"}

	changed := changedCatalogFields(before, after)
	assert.Equal(t, []string{"website", "city"}, changed)
}

func TestChangedCatalogFields_NoChanges(t *testing.T) {
	snap := workflow.Snapshot{"name": "Acme", "sector": "fintech"}
	assert.Empty(t, changedCatalogFields(snap, snap))

	// Keys outside the catalog (status_id, status_name) never count as
	// attribute edits.
	after := workflow.Snapshot{"name": "Acme", "sector": "fintech", "status_name": "Invested"}
	assert.Empty(t, changedCatalogFields(snap, after))
}

func TestQueryUUID(t *testing.T) {
	id := uuid.New()

	r := httptest.NewRequest("GET", "/tasks?startup_id="+id.String(), nil)
	got, ok := queryUUID(r, "startup_id")
	require.True(t, ok)
	require.NotNil(t, got)
	assert.Equal(t, id, *got)

	r = httptest.NewRequest("GET", "/tasks", nil)
	got, ok = queryUUID(r, "startup_id")
	assert.True(t, ok)
	assert.Nil(t, got)

	r = httptest.NewRequest("GET", "/tasks?startup_id=nope", nil)
	_, ok = queryUUID(r, "startup_id")
	assert.False(t, ok)
}
