// Package logger bridges slog into APIs that still take a *log.Logger.
package logger

import (
	"log"
	"log/slog"
)

// New returns a *log.Logger writing through base at error level, tagged with the component.
func New(component string, base *slog.Logger) *log.Logger {
	if base == nil {
		base = slog.Default()
	}
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelError)
}
