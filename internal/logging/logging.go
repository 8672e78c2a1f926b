// Package logging configures the process-wide slog logger.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "NGJUDGE_LOG_LEVEL"

var level = new(slog.LevelVar)

// Configure installs a text handler on stdout as the default logger and
// returns it. The level comes from NGJUDGE_LOG_LEVEL and defaults to INFO.
func Configure() *slog.Logger {
	level.Set(ParseLevel(os.Getenv(EnvLevel)))
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR to slog levels. Anything else is INFO.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// SetLevel changes the level of the logger installed by Configure.
func SetLevel(l slog.Level) {
	level.Set(l)
}
