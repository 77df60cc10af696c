// Package config holds the runtime configuration of the hello service.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/earthbuild/hello-earthly/pkg/greeting"
)

// Environments the service knows about
const (
	EnvDevelopment = "development"
	EnvTest        = "test"
	EnvProduction  = "production"
)

// Log formats
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const (
	defaultPort            = 8080
	defaultProbeTimeout    = 1 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 15 * time.Second
)

// Config holds the configuration for the hello server and its lifecycle
type Config struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	DefaultName     string        `mapstructure:"default-name"`
	Environment     string        `mapstructure:"environment"`
	ProbeTimeout    time.Duration `mapstructure:"probe-timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout"`
	EnableCORS      bool          `mapstructure:"enable-cors"`
	LogLevel        string        `mapstructure:"log-level"`
	LogFormat       string        `mapstructure:"log-format"`
}

// Default returns the configuration used when nothing is overridden.
// An empty Host binds every interface.
func Default() *Config {
	return &Config{
		Host:            "",
		Port:            defaultPort,
		DefaultName:     greeting.ServerDefaultName,
		Environment:     EnvDevelopment,
		ProbeTimeout:    defaultProbeTimeout,
		ShutdownTimeout: defaultShutdownTimeout,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		EnableCORS:      false,
		LogLevel:        "info",
		LogFormat:       LogFormatText,
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probe timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	if c.ReadTimeout < 0 || c.WriteTimeout < 0 {
		return fmt.Errorf("read/write timeouts cannot be negative")
	}
	switch c.Environment {
	case EnvDevelopment, EnvTest, EnvProduction:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	switch strings.ToLower(c.LogFormat) {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

// Address returns the address the server listens on
func (c *Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ProbeAddress returns the address used to check for an already running server.
// A wildcard listen host is probed through localhost.
func (c *Config) ProbeAddress() string {
	host := c.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return net.JoinHostPort(host, strconv.Itoa(c.Port))
}

// BaseURL returns the URL clients use to reach the server
func (c *Config) BaseURL() string {
	return "http://" + c.ProbeAddress()
}

// IsTest reports whether the service runs in the test environment
func (c *Config) IsTest() bool {
	return c.Environment == EnvTest
}

// IsProduction reports whether the service runs in the production environment
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
