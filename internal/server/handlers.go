package server

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// pathID parses the {id} path segment as a UUID.
func pathID(r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	return id, err == nil
}

// pagination reads page/limit query parameters and converts them to
// limit/offset. Page numbering is 1-based.
func pagination(r *http.Request) (limit, offset, page int) {
	page = 1
	limit = 50

	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}
	return limit, (page - 1) * limit, page
}

// queryUUID parses an optional UUID query parameter. The bool reports
// whether the value, if present, was valid.
func queryUUID(r *http.Request, name string) (*uuid.UUID, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, true
	}
	id, err := uuid.Parse(v)
	if err != nil {
		return nil, false
	}
	return &id, true
}

// listResponse is the envelope for paginated collections.
type listResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Limit int `json:"limit"`
}
