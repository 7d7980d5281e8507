package logging

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentLoggerAddsFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: FormatJSON, Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "info"}) })

	logger := WithAgent(WithTask(Component("tasks"), "t1"), "agent1")
	logger.Info().Msg("task started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "tasks", line["component"])
	assert.Equal(t, "t1", line["task_id"])
	assert.Equal(t, "agent1", line["agent_id"])
	assert.Equal(t, "task started", line["message"])
}

func TestInitAppliesLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: FormatJSON, Output: &buf})
	t.Cleanup(func() { Init(Config{Level: "info"}) })

	logger := Component("fleet")
	logger.Info().Msg("hidden")
	assert.Empty(t, buf.String())
	logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), `"message":"shown"`)
}

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("Warning")
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, level)

	level, err = ParseLevel("off")
	require.NoError(t, err)
	assert.Equal(t, zerolog.Disabled, level)

	level, err = ParseLevel("bogus")
	assert.Error(t, err)
	assert.Equal(t, zerolog.InfoLevel, level)
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat("json"))
	assert.True(t, ValidFormat("console"))
	assert.False(t, ValidFormat("text"))
}

func TestOpenFileCreatesDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "geoforce.log")
	f, err := OpenFile(path)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.FileExists(t, path)
}
