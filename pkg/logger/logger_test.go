package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/surveydesk/surveydesk/internal/common/config"
)

func TestNewLogger_Stdout(t *testing.T) {
	logger, err := NewLogger(&config.LoggerConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	logger.Debug("debug message")
}

func TestNewLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "surveydesk.log")
	logger, err := NewLogger(&config.LoggerConfig{
		Level:    "info",
		Output:   "file",
		FilePath: path,
	})
	require.NoError(t, err)

	logger.Info("written to file")
	require.NoError(t, logger.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	logger, err := NewLogger(&config.LoggerConfig{Level: "nope"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(-1)) // debug disabled
	assert.True(t, logger.Core().Enabled(0))   // info enabled
}
