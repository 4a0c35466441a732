package logger

import (
	"io"
	"log/slog"
	"os"
)

// New returns the process logger: JSON in production so log shippers can
// parse it, human-readable text everywhere else.
func New(production bool) *slog.Logger {
	return NewWithWriter(os.Stdout, production)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, production bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if production {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	opts.Level = slog.LevelDebug
	return slog.New(slog.NewTextHandler(w, opts))
}
