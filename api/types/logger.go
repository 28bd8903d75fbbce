package types

import (
	"log"
	"os"
)

// Logger is the minimal logging surface the engine and its components
// write to. Any sink with a Printf method fits, the standard logger
// included.
type Logger interface {
	Printf(format string, v ...interface{})
}

// breaks at compile time if *log.Logger stops satisfying Logger.
var _ Logger = &log.Logger{}

// DefaultLogger returns a Logger writing to stdout with standard flags.
func DefaultLogger() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}

// NewLogger returns custom when non-nil, the default logger otherwise.
func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}
	return DefaultLogger()
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...interface{}) {}

// NopLogger discards everything. Handy in tests.
var NopLogger Logger = nopLogger{}
