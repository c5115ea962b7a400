package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_JSON(t *testing.T) {
	var buf bytes.Buffer
	l := Setup(&buf, false)

	l.Info("test message", slog.String("key", "value"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "raw output: %s", buf.String())
	assert.Equal(t, "test message", entry["msg"])
	assert.Equal(t, "value", entry["key"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Contains(t, entry, "time")
}

func TestSetup_DebugSuppressedByDefault(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, false).Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestSetup_DebugMode(t *testing.T) {
	var buf bytes.Buffer
	Setup(&buf, true).Debug("visible", slog.Int("n", 1))

	out := buf.String()
	assert.True(t, strings.Contains(out, "level=DEBUG"), out)
	assert.Contains(t, out, "msg=visible")
	assert.Contains(t, out, "n=1")
}
