// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup installs the global logger. format "console" forces the human
// readable writer, "json" forces JSON; anything else picks console output
// when stderr is a terminal.
func Setup(level, format string) {
	SetupWriter(os.Stderr, level, format, isatty.IsTerminal(os.Stderr.Fd()))
}

// SetupWriter is Setup with an explicit sink.
func SetupWriter(w io.Writer, level, format string, tty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano

	out := w
	if format == "console" || (format != "json" && tty) {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05.000"}
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}
