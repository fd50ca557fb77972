package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warn"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNew_JSONByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "info", "")

	logger.Debug("hidden")
	logger.Info("synced", "count", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "synced", entry["msg"])
	assert.Equal(t, float64(3), entry["count"])
}

func TestNew_TextAndTint(t *testing.T) {
	for _, format := range []string{FormatText, FormatTint} {
		var buf bytes.Buffer
		New(&buf, "debug", format).Debug("page fetched", "strategy", "rating")

		assert.Contains(t, buf.String(), "page fetched", format)
		assert.Contains(t, buf.String(), "rating", format)
	}
}
