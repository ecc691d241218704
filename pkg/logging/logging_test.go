package logging

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"Info", LevelInfo},
		{"warn", LevelWarn},
		{"Warning", LevelWarn},
		{" error ", LevelError},
		{"", LevelInfo},
		{"trace", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), tt.input)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	assert.Equal(t, FormatJSON, ParseFormat("json"))
	assert.Equal(t, FormatJSON, ParseFormat("JSON"))
	assert.Equal(t, FormatText, ParseFormat("text"))
	assert.Equal(t, FormatText, ParseFormat("logfmt"))
}

func TestNew(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := New(Parse("warn", "json", false, &buf))
	logger.Info("dropped")
	Component(logger, "engine").Warn("plugin failed", "api", "petstore")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "plugin failed", entry["msg"])
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "petstore", entry["api"])
	assert.NotContains(t, buf.String(), "dropped")
}

func TestNop(t *testing.T) {
	t.Parallel()

	logger := Nop()
	logger.Error("ignored")
	assert.False(t, logger.Enabled(t.Context(), LevelError))
	assert.NotNil(t, Component(nil, "x"))
}
