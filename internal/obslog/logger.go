package obslog

import (
	"io"
	"os"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the concrete event type every package in this module logs
// through.
type Logger = logiface.Logger[*stumpy.Event]

// New builds a Logger writing newline-delimited JSON to out at the given
// minimum level.
func New(out io.Writer, level logiface.Level) *Logger {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(out)),
		stumpy.L.WithLevel(level),
	)
}

// Noop discards everything logged through it. Nothing in this module
// substitutes it for a missing Logger.
func Noop() *Logger {
	return New(io.Discard, logiface.LevelDisabled)
}

// NewStderr is the convenience constructor cmd/concuject/main.go wires in
// by default.
func NewStderr(level logiface.Level) *Logger {
	return New(os.Stderr, level)
}
