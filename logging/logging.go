// Package logging configures the pipeline's global structured logger.
// Adapted from arthur-debert-dodot's pkg/logging: a package-level
// SetupLogger that installs the global logger, and a GetLogger that hands
// out component-scoped children.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger installs the global zerolog logger at the given level
// ("trace", "debug", "info", "warn", "error" — anything else falls back to
// info) and format ("json" or "console"). cmd/pipelined then calls
// GetLogger for a component-scoped child that it hands to the publisher
// and to each handler execution.
func SetupLogger(level, format string) {
	zerolog.SetGlobalLevel(parseLevel(level))

	var logger zerolog.Logger
	if strings.EqualFold(format, "console") {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	}

	log.Logger = logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "trace":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetLogger returns a child of the global logger tagged with component,
// so that log lines carry their origin instead of going through an
// untagged global.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// Must logs a fatal error and exits the process if err is not nil, for
// wiring-time failures with no sensible recovery (bad config file,
// unreachable catalog database). cmd/pipelined does not call it; it exits
// through the standard library's log.Fatalf instead.
func Must(err error, msg string) {
	if err != nil {
		log.Fatal().Err(err).Msg(msg)
	}
}
