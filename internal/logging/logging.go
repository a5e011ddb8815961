// Package logging builds the zerolog logger shared by a command run. Every
// entry carries the run's ID so the output of one scaffold can be told
// apart in aggregated logs.
package logging

import (
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Formats accepted by New.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}

// New returns a logger writing to w at level in format, tagged with runID.
func New(w io.Writer, level, format, runID string) (*zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", level, err)
	}

	out := w
	switch format {
	case FormatJSON:
	case FormatConsole, "":
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: true}
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	logger := zerolog.New(out).Level(lvl).With().Timestamp().Str("run_id", runID).Logger()
	return &logger, nil
}
