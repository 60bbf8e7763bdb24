// Package trace generates exchange IDs and propagates them through context so
// log lines and usage-log rows produced while handling one inbound message can
// be correlated.
package trace

import (
	"context"

	"github.com/google/uuid"
)

// traceKey is the unexported context key holding the exchange ID.
type traceKey struct{}

// GenerateID returns a fresh exchange ID.
func GenerateID() string {
	return "x_" + uuid.New().String()
}

// WithID returns a child context carrying the given exchange ID.
func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the exchange ID from ctx, returning "" when absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
