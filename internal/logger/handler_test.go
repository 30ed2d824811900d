package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerWritesAttributes(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.With("component", "reaper").WithGroup("sweep").Info("recycle bin sweep finished",
		"purged", 3,
		"note", "two words",
		"error", errors.New("partial"),
	)

	line := buf.String()
	assert.True(t, strings.HasSuffix(line, "\n"))
	assert.Contains(t, line, "recycle bin sweep finished")
	assert.Contains(t, line, "component"+reset+"=reaper")
	assert.Contains(t, line, "sweep.purged"+reset+"=3")
	assert.Contains(t, line, `sweep.note`+reset+`="two words"`)
	assert.Contains(t, line, red+"sweep.error")
}

func TestPrettyHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(NewPrettyHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn}))

	log.Info("hidden")
	log.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewPicksFormat(t *testing.T) {
	var buf bytes.Buffer
	slog.New(New(&buf, "json", "debug")).Debug("structured", "entry_id", 7)

	line := buf.String()
	require.True(t, strings.HasPrefix(line, "{"), line)
	assert.Contains(t, line, `"entry_id":7`)

	_, pretty := New(&buf, "text", "info").(*PrettyHandler)
	assert.True(t, pretty)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel(" WARN "))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
