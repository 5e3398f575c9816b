package request

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestGetUUIDParam(t *testing.T) {
	id := uuid.New()
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", id.String())

	got, err := GetUUIDParam(req, "id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	req = withParam(httptest.NewRequest(http.MethodGet, "/", nil), "id", "nope")
	_, err = GetUUIDParam(req, "id")
	assert.Error(t, err)

	_, err = GetUUIDParam(httptest.NewRequest(http.MethodGet, "/", nil), "id")
	assert.Error(t, err)
}

func TestGetIntParam(t *testing.T) {
	req := withParam(httptest.NewRequest(http.MethodGet, "/", nil), "index", "3")
	got, err := GetIntParam(req, "index")
	require.NoError(t, err)
	assert.Equal(t, 3, got)

	req = withParam(httptest.NewRequest(http.MethodGet, "/", nil), "index", "three")
	_, err = GetIntParam(req, "index")
	assert.Error(t, err)
}

func TestGetPaginationParams(t *testing.T) {
	tests := []struct {
		query         string
		limit, offset int
	}{
		{query: "", limit: 20, offset: 0},
		{query: "?limit=50&offset=10", limit: 50, offset: 10},
		{query: "?limit=500", limit: 20, offset: 0},
		{query: "?limit=-1&offset=-5", limit: 20, offset: 0},
		{query: "?limit=abc", limit: 20, offset: 0},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/items"+tt.query, nil)
		limit, offset := GetPaginationParams(req)
		assert.Equal(t, tt.limit, limit, tt.query)
		assert.Equal(t, tt.offset, offset, tt.query)
	}
}

func TestGetDateRange(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/reports/sales?from=2024-03-01&to=2024-03-31", nil)
	from, to, err := GetDateRange(req)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *from)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), *to)

	req = httptest.NewRequest(http.MethodGet, "/reports/sales?to=2024-03-31T12:00:00Z", nil)
	from, to, err = GetDateRange(req)
	require.NoError(t, err)
	assert.Nil(t, from)
	assert.Equal(t, time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC), *to)

	req = httptest.NewRequest(http.MethodGet, "/reports/sales?from=yesterday", nil)
	_, _, err = GetDateRange(req)
	assert.Error(t, err)
}

func TestGetUUIDQuery(t *testing.T) {
	id := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/invoices?customer_id="+id.String(), nil)
	got, err := GetUUIDQuery(req, "customer_id")
	require.NoError(t, err)
	assert.Equal(t, id, *got)

	got, err = GetUUIDQuery(httptest.NewRequest(http.MethodGet, "/invoices", nil), "customer_id")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = GetUUIDQuery(httptest.NewRequest(http.MethodGet, "/invoices?customer_id=x", nil), "customer_id")
	assert.Error(t, err)
}

func TestDecodeJSON(t *testing.T) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"quantity": 4}`))
	require.NoError(t, DecodeJSON(req, &body))
	assert.Equal(t, 4, body.Quantity)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.Error(t, DecodeJSON(req, &body))
}
