package request

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const maxRequestBodySize = 1 << 20 // 1MB

// DecodeJSON decodes JSON request body into the provided struct with size limit
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	limitedReader := io.LimitReader(r.Body, maxRequestBodySize)

	if err := json.NewDecoder(limitedReader).Decode(v); err != nil {
		return fmt.Errorf("failed to decode JSON: %w", err)
	}
	return nil
}

// GetStringParam extracts a non-empty string parameter from the URL
func GetStringParam(r *http.Request, key string) (string, error) {
	param := chi.URLParam(r, key)
	if param == "" {
		return "", fmt.Errorf("missing parameter: %s", key)
	}
	return param, nil
}

// GetUUIDParam extracts a UUID parameter from the URL
func GetUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	param, err := GetStringParam(r, key)
	if err != nil {
		return uuid.Nil, err
	}

	id, err := uuid.Parse(param)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid UUID: %w", err)
	}

	return id, nil
}

// GetIntParam extracts an integer parameter from the URL
func GetIntParam(r *http.Request, key string) (int, error) {
	param, err := GetStringParam(r, key)
	if err != nil {
		return 0, err
	}

	value, err := strconv.Atoi(param)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q: %w", param, err)
	}

	return value, nil
}

// GetIntQuery extracts an integer query parameter with a default value
func GetIntQuery(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}

	intValue, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}

	return intValue
}

// GetUUIDQuery extracts an optional UUID query parameter. Absent yields nil.
func GetUUIDQuery(r *http.Request, key string) (*uuid.UUID, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, nil
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", key, err)
	}
	return &id, nil
}

// GetDateQuery extracts an optional date (YYYY-MM-DD) or RFC3339 timestamp query parameter.
// Plain dates are interpreted as midnight UTC.
func GetDateQuery(r *http.Request, key string) (*time.Time, bool, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return nil, false, nil
	}

	if t, err := time.Parse(time.DateOnly, value); err == nil {
		t = t.UTC()
		return &t, true, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, false, fmt.Errorf("invalid %s: expected YYYY-MM-DD or RFC3339, got %q", key, value)
	}
	t = t.UTC()
	return &t, false, nil
}

// GetDateRange reads the from/to query pair. A plain-date "to" covers that whole day.
func GetDateRange(r *http.Request) (from, to *time.Time, err error) {
	from, _, err = GetDateQuery(r, "from")
	if err != nil {
		return nil, nil, err
	}

	to, dateOnly, err := GetDateQuery(r, "to")
	if err != nil {
		return nil, nil, err
	}
	if to != nil && dateOnly {
		end := to.AddDate(0, 0, 1)
		to = &end
	}

	return from, to, nil
}

// GetPaginationParams extracts and validates pagination parameters
func GetPaginationParams(r *http.Request) (limit, offset int) {
	limit = GetIntQuery(r, "limit", 20)
	offset = GetIntQuery(r, "offset", 0)

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
