package config

import (
	"os"

	"github.com/sirupsen/logrus"
)

// NewLogger creates a logger writing to stderr. Unknown levels fall back to
// info, and any format other than "json" is text.
func NewLogger(level, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	}
	return logger
}

// Logger creates the logger described by the configuration.
func (c *Config) Logger() *logrus.Logger {
	return NewLogger(c.LogLevel, c.LogFormat)
}
