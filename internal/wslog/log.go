// Package wslog wires github.com/rs/zerolog into the codec and its
// collaborators, the way the retrieval pack's websocket packages wire
// zerolog into their own test and runtime paths: a zerolog.Logger injected
// at construction, defaulting to zerolog.Nop() so callers who don't care
// about frame-level diagnostics pay nothing for them.
package wslog

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a human-readable console logger, suitable for the
// cmd/wsframedump CLI and local development.
func New(debug bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	console := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that discards everything, the default for
// codec.Reader/Writer and for unit tests.
func Nop() zerolog.Logger {
	return zerolog.Nop()
}
