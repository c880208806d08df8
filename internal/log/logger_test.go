package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetGlobal() {
	logger = nil
	once = *new(sync.Once)
}

func TestSetupWriterJSON(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	var buf bytes.Buffer
	SetupWriter(&buf, "debug", "json")
	require.NotNil(t, logger)

	Get().Debug("hello", "k", "v")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "hello", out["msg"])
	assert.Equal(t, "v", out["k"])
}

func TestSetupWriterText(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	var buf bytes.Buffer
	SetupWriter(&buf, "info", "text")
	Get().Info("plain")

	assert.True(t, strings.Contains(buf.String(), "msg=plain"), "got %q", buf.String())
}

func TestSetupOnlyOnce(t *testing.T) {
	resetGlobal()
	t.Cleanup(resetGlobal)

	var first, second bytes.Buffer
	SetupWriter(&first, "info", "json")
	SetupWriter(&second, "info", "json")
	Get().Info("x")

	assert.NotZero(t, first.Len())
	assert.Zero(t, second.Len())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(resetGlobal)

	WithComponent("webhook").Info("hello")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "webhook", out["component"])
}

func TestWithEvent(t *testing.T) {
	var buf bytes.Buffer
	logger = slog.New(slog.NewJSONHandler(&buf, nil))
	t.Cleanup(resetGlobal)

	WithEvent("evt_1", "refund.created").Info("handled")

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "evt_1", out["event_id"])
	assert.Equal(t, "refund.created", out["event_type"])
}
