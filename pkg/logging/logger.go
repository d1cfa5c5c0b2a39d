// Package logging configures the global zerolog logger shared by the
// transport, the resource clients and the proxy.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs request flow, cache hits and page fetches.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs completed aggregations and writes.
	LevelInfo LogLevel = "info"

	// LevelWarn logs partial failures, truncated batches and retries.
	LevelWarn LogLevel = "warn"

	// LevelError logs exhausted retries and startup failures.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output instead of JSON.
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	Output io.Writer

	// Service is added to every entry when set.
	Service string
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger and returns it.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(output).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	logger := ctx.Logger()

	log.Logger = logger
	return logger
}

// ParseLevel converts a level name to a zerolog level. Unknown names map to
// info.
func ParseLevel(level LogLevel) zerolog.Level {
	name := strings.ToLower(strings.TrimSpace(string(level)))
	if name == "warning" {
		name = "warn"
	}
	parsed, err := zerolog.ParseLevel(name)
	if err != nil || name == "" {
		return zerolog.InfoLevel
	}
	return parsed
}

// NewLogger creates a logger for the given component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Context fields used across the module:
//   - component: emitting package (marketo-transport, marketo, pagination, describe-cache)
//   - service: resource service (activities, emails, static-lists, custom-objects, leads)
//   - operation_id: one aggregated read, shared by all its page requests
//   - path, method, status: outbound request
//   - error_class: client, server, rate_limit, network, validation
//   - code: Marketo envelope error code
//   - batch, requests, records: batched read progress
//   - offset: fan-out branch
//   - object: custom object name
