// Package rvlog centralises this module's logging conventions on top of
// go-ethereum's structured logger, the same dependency cannon/mipsevm's
// host tooling uses throughout (see its oracle.go and cmd packages), rather
// than reaching for the standard library's log package.
package rvlog

import (
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/log"
)

// New returns a logger writing structured terminal output at the given
// verbosity, mirroring the --verbose-counting convention used by cannon's
// host CLI: each unit of verbosity lowers the level by one step, down to
// Trace. cmd/rv64core passes 0 or 1.
func New(verbosity int) log.Logger {
	lvl := slog.Level(int(log.LevelInfo) - verbosity*4)
	if lvl < log.LevelTrace {
		lvl = log.LevelTrace
	}
	handler := log.NewTerminalHandlerWithLevel(os.Stderr, lvl, true)
	logger := log.NewLogger(handler)
	log.SetDefault(logger)
	return logger
}

// Nop returns a logger that discards everything, for library callers and
// tests that don't want cmd/rv64core's terminal formatting.
func Nop() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}
