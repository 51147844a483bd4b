// Package logging configures the process-wide zerolog logger.
//
// Output is one JSON object per line on stderr, or colored console lines when
// Pretty is set (the CLI's --pretty flag). Every package logs through a child
// of the global logger tagged with its component name.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultLevel is used when no level is configured.
const DefaultLevel = "info"

// levelAliases are accepted on top of zerolog's own level names.
var levelAliases = map[string]zerolog.Level{
	"warning": zerolog.WarnLevel,
	"off":     zerolog.Disabled,
	"none":    zerolog.Disabled,
}

// Config selects level, format and destination.
type Config struct {
	// Level is a zerolog level name ("debug", "info", "warn", "error",
	// "disabled") or one of the aliases "warning", "off", "none".
	Level string
	// Pretty switches from JSON lines to console output.
	Pretty bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns JSON output at info level on stderr.
func DefaultConfig() Config {
	return Config{Level: DefaultLevel, Output: os.Stderr}
}

// ParseLevel resolves a level name, case-insensitively. An empty name is the
// default level.
func ParseLevel(name string) (zerolog.Level, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = DefaultLevel
	}
	if lvl, ok := levelAliases[name]; ok {
		return lvl, nil
	}
	lvl, err := zerolog.ParseLevel(name)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

// Setup installs the global logger and returns it. An unknown level falls
// back to info; config validation rejects it before this point.
func Setup(cfg Config) zerolog.Logger {
	lvl, _ := ParseLevel(cfg.Level)
	zerolog.SetGlobalLevel(lvl)

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// NewLogger returns a child of the global logger tagged with component.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// What goes where:
//
// debug: cache hit/miss and revalidation, each fetched page, each filter run
// info:  corpus built, 304 answers, login/logout, gateway start and stop
// warn:  retries, partial corpus, reference data replaced by defaults,
//        undecodable listing records, Redis errors bypassed
// error: requests failed after retries, cooldown blocks
//
// Common fields: component, endpoint, status_code, duration, error_class,
// request_id, and pages/records/complete on corpus builds.
