// Package logging builds the logrus logger shared by every vetsim component.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/EcliqseX/vetsim/internal/domain"
)

// Output targets.
const (
	OutputStdout = "stdout"
	OutputStderr = "stderr"
	OutputFile   = "file"
)

// New builds a logger from cfg. The returned closer releases the log file
// when Output is "file" and is a no-op otherwise.
func New(cfg domain.LoggingConfig) (*logrus.Logger, io.Closer, error) {
	logger := logrus.New()

	level, err := logrus.ParseLevel(defaultString(cfg.Level, "info"))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(defaultString(cfg.Format, "json")) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, nil, fmt.Errorf("invalid log format %q", cfg.Format)
	}

	var closer io.Closer = nopCloser{}
	switch strings.ToLower(defaultString(cfg.Output, OutputStdout)) {
	case OutputStdout:
		logger.SetOutput(os.Stdout)
	case OutputStderr:
		logger.SetOutput(os.Stderr)
	case OutputFile:
		if cfg.Filename == "" {
			return nil, nil, fmt.Errorf("log output %q requires a filename", OutputFile)
		}
		f, err := os.OpenFile(cfg.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logger.SetOutput(f)
		closer = f
	default:
		return nil, nil, fmt.Errorf("invalid log output %q", cfg.Output)
	}

	return logger, closer, nil
}

// ForStdio builds a logger that never writes to stdout, which belongs to
// the MCP stdio transport.
func ForStdio(level, format string) (*logrus.Logger, error) {
	logger, _, err := New(domain.LoggingConfig{Level: level, Format: format, Output: OutputStderr})
	return logger, err
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
