package core

import (
	"io"

	"github.com/felixgeelhaar/bolt/v3"
)

// NewLogger builds a console logger for the bank. If verbose is false,
// only warnings and errors are shown.
func NewLogger(out io.Writer, verbose bool) *bolt.Logger {
	l := bolt.New(bolt.NewConsoleHandler(out))
	if !verbose {
		l.SetLevel(bolt.WARN)
	}
	return l
}

// disabledLogger swallows all output.
func disabledLogger() *bolt.Logger {
	return bolt.New(bolt.NewJSONHandler(io.Discard))
}
