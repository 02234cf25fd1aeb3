package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "debug", Format: "json", Output: &buf})
	t.Cleanup(func() { globalLogger = nil })

	Error("save failed", errors.New("boom"), map[string]interface{}{"product_id": 7})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "save failed", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, float64(7), entry["product_id"])
	assert.Contains(t, entry["caller"], "logger_test.go")
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	Initialize(Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() {
		globalLogger = nil
		Initialize(Config{Level: "info", Format: "json", Output: &bytes.Buffer{}})
		globalLogger = nil
	})

	Info("ignored")
	assert.Zero(t, buf.Len())

	WithContext(map[string]interface{}{"request_id": "abc"}).Warn("kept")
	assert.Contains(t, buf.String(), `"request_id":"abc"`)
}
