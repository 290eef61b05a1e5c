package testutil

import (
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// NewTestLogger returns a logger that swallows all output. Swap in
// NewTestLoggerWithOutput when a failing interleaving needs the log lines.
func NewTestLogger(t *testing.T) zerolog.Logger {
	return zerolog.New(io.Discard).With().Timestamp().Logger()
}

// NewTestLoggerWithOutput returns a logger that writes through t.Log, so
// lines land attached to the right test in verbose output.
func NewTestLoggerWithOutput(t *testing.T) zerolog.Logger {
	return zerolog.New(testWriter{t}).With().Timestamp().Logger()
}

// testWriter adapts testing.T to io.Writer.
type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
