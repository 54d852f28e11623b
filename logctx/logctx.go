// Package logctx attaches a request-scoped *slog.Logger to a
// context.Context, so middleware that enriches a logger with request
// fields (request id, route, trace id) and a handler deep in the chain
// can share the same logger without threading it through every Handler
// signature. Adapted from the teacher's ctx/logctx.go.
package logctx

import (
	"context"
	"log/slog"
)

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying l, retrievable later with
// FromContext.
func WithLogger(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger attached to ctx, or slog.Default if none
// was attached, so callers never have to nil-check.
func FromContext(ctx context.Context) *slog.Logger {
	if v := ctx.Value(loggerKey{}); v != nil {
		if l, ok := v.(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}
