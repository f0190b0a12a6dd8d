// Package common provides shared utilities for the onboarding service,
// primarily structured logger setup used by all entry points.
package common

import (
	"log/slog"
	"os"
)

// LoggingOpts configures the root structured logger.
type LoggingOpts struct {
	// Service is added as a 'service' attribute to all log entries.
	Service string

	// JSON enables JSON output instead of human-readable text.
	JSON bool

	// Debug lowers the minimum level to slog.LevelDebug.
	Debug bool

	// Version is added as a 'version' attribute to all log entries.
	Version string
}

// SetupLogger creates the root slog.Logger for a process. Components
// receive this logger (or a child of it) via their constructors.
func SetupLogger(opts *LoggingOpts) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}

	log := slog.New(handler)
	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}
	return log
}
