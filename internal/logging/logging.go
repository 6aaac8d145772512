// Package logging builds the component-scoped loggers used across the app.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "BLOCKGRID_LOG_LEVEL"

// New returns a stderr logger prefixed with component. The level comes from
// BLOCKGRID_LOG_LEVEL and defaults to info.
func New(component string) *log.Logger {
	return NewWriter(os.Stderr, component, LevelFromEnv())
}

// NewWriter returns a logger writing to w at level.
// Timestamps look like "14:32:01.45".
func NewWriter(w io.Writer, component string, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          component,
	})
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// LevelFromEnv parses BLOCKGRID_LOG_LEVEL. Unknown values fall back to info.
func LevelFromEnv() log.Level {
	return ParseLevel(os.Getenv(EnvLevel))
}

// ParseLevel maps debug|info|warn|error to a level, defaulting to info.
func ParseLevel(s string) log.Level {
	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}
