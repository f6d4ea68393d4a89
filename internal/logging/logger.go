// Package logging defines the structured-logging interface used across
// vormiaquery. The default implementation wraps log/slog.
package logging

import "context"

// Logger receives request lifecycle records from the client, the auth
// service and the CLI. Args are alternating keys and values:
//
//	log.Debug(ctx, "request finished", "method", "GET", "status", 200)
type Logger interface {
	// Debug carries per-request diagnostics. Bodies and tokens must be
	// passed through the sensitive filter first.
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is used for 401s, timeouts and ignored remote failures.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger carrying args on every record.
	With(args ...any) Logger
}
