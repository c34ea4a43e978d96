// Package logging builds the logrus loggers shared by keystrike components.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Config configures a logger.
type Config struct {
	// Level is the minimum level to output ("trace", "debug", "info", "warn", "error").
	Level string

	// Output is where logs are written. Defaults to os.Stderr.
	Output io.Writer

	// JSON selects the JSON formatter instead of text.
	JSON bool
}

// DefaultConfig returns the default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Output: os.Stderr,
	}
}

// New creates a logger from the configuration.
func New(cfg Config) (*logrus.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	logger := logrus.New()
	logger.SetOutput(out)
	logger.SetLevel(level)
	if cfg.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02T15:04:05.000",
		})
	}
	return logger, nil
}

// ParseLevel parses one of trace, debug, info, warn or error.
func ParseLevel(s string) (logrus.Level, error) {
	switch s {
	case "trace", "debug", "info", "warn", "warning", "error":
		return logrus.ParseLevel(s)
	default:
		return logrus.InfoLevel, fmt.Errorf("invalid log level %q (must be trace, debug, info, warn, or error)", s)
	}
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// Component returns an entry tagged with the component name.
func Component(logger logrus.FieldLogger, name string) logrus.FieldLogger {
	if logger == nil {
		logger = Discard()
	}
	return logger.WithField("component", name)
}
