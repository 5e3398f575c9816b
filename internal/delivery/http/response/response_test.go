package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginated(t *testing.T) {
	w := httptest.NewRecorder()
	Paginated(w, []string{"a", "b"}, 7, 2, 4)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, map[string]any{"total": 7.0, "limit": 2.0, "offset": 4.0}, body["pagination"])
}

func TestSuccessOmitsPagination(t *testing.T) {
	w := httptest.NewRecorder()
	Success(w, map[string]int{"n": 1})

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotContains(t, body, "pagination")
}

func TestError(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, http.StatusConflict, "Invoice is not a draft")

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"Invoice is not a draft"}`, w.Body.String())
}
