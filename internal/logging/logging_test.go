package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelError, levelFromString("ERROR"))
	assert.Equal(t, slog.LevelWarn, levelFromString(" warning "))
	assert.Equal(t, slog.LevelInfo, levelFromString("info"))
	assert.Equal(t, slog.LevelDebug, levelFromString(""))
}

func TestNewWithFormatJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := NewWithFormat("info", "json", &buf)
	logger.Debug("hidden")
	logger.Info("stored alert", "region", "toronto")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "stored alert", record["msg"])
	assert.Equal(t, "toronto", record["region"])
}

func TestNewWithFormatText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewWithFormat("warn", "text", &buf).Warn("source skipped", "source", "rss")
	assert.Contains(t, buf.String(), "source=rss")

	Discard().Error("nothing")
}
