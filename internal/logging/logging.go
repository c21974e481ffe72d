// Package logging configures zerolog for the datesync binary.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process. format "json" writes one JSON
// object per line; anything else uses the console writer. An unknown level
// falls back to info. out defaults to stderr so command output on stdout
// stays clean.
func Setup(level, format string, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var writer io.Writer = out
	if format != "json" {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.Kitchen}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger
}

// Discard returns a logger that writes nothing, for the TUI where log lines
// would corrupt the screen
func Discard() zerolog.Logger {
	return zerolog.Nop()
}
