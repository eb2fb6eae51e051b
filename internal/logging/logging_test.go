package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EcliqseX/vetsim/internal/domain"
)

func TestNew_Defaults(t *testing.T) {
	logger, closer, err := New(domain.LoggingConfig{})
	require.NoError(t, err)
	defer closer.Close()

	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stdout, logger.Out)
}

func TestNew_TextToStderr(t *testing.T) {
	logger, _, err := New(domain.LoggingConfig{Level: "debug", Format: "text", Output: "stderr"})
	require.NoError(t, err)

	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)
	assert.Equal(t, os.Stderr, logger.Out)
}

func TestNew_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vetsim.log")

	logger, closer, err := New(domain.LoggingConfig{Level: "info", Output: "file", Filename: path})
	require.NoError(t, err)

	logger.WithField("session_id", "s-1").Info("Session opened")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"session_id":"s-1"`)
	assert.Contains(t, string(data), `"msg":"Session opened"`)
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  domain.LoggingConfig
	}{
		{name: "bad level", cfg: domain.LoggingConfig{Level: "loud"}},
		{name: "bad format", cfg: domain.LoggingConfig{Format: "xml"}},
		{name: "bad output", cfg: domain.LoggingConfig{Output: "syslog"}},
		{name: "file without name", cfg: domain.LoggingConfig{Output: "file"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestForStdio(t *testing.T) {
	logger, err := ForStdio("warn", "json")
	require.NoError(t, err)

	assert.Equal(t, os.Stderr, logger.Out)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
}
