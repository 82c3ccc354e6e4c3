package types

import "time"

// Clock abstracts time for deterministic testing.
// clockwork.Clock satisfies this interface.
type Clock interface {
	Now() time.Time
}

// Logger is the minimal structured logging surface used by workers that do not
// take a *slog.Logger directly.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
	With(args ...any) Logger
}
