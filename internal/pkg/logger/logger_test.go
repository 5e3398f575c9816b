package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveLevel(t *testing.T) {
	assert.Equal(t, zerolog.DebugLevel, resolveLevel("development", ""))
	assert.Equal(t, zerolog.InfoLevel, resolveLevel("production", ""))
	assert.Equal(t, zerolog.WarnLevel, resolveLevel("development", "warn"))
	assert.Equal(t, zerolog.ErrorLevel, resolveLevel("production", " ERROR "))
	assert.Equal(t, zerolog.InfoLevel, resolveLevel("production", "loud"))
}

func TestLogger_StructuredFields(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "production", "info")

	log.Component("invoice").
		WithFields(map[string]interface{}{"invoice_id": "abc"}).
		Error("Finalize failed", errors.New("boom"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "invoice", entry["component"])
	assert.Equal(t, "abc", entry["invoice_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "Finalize failed", entry["message"])
}
