// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/earthbuild/hello-earthly/pkg/config"
)

// Setup applies the level and format from cfg to the standard logrus logger
func Setup(cfg *config.Config) error {
	return Configure(logrus.StandardLogger(), cfg)
}

// Configure applies the level and format from cfg to logger
func Configure(logger *logrus.Logger, cfg *config.Config) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	if strings.EqualFold(cfg.LogFormat, config.LogFormatJSON) {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
	return nil
}

// Discard returns a logger that drops everything, for tests
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
