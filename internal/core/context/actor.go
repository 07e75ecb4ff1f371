// Package context provides request-scoped values extraction.
package context

import (
	"context"
)

// Actor is the opaque identifier of whoever performs a mutation.
// It is supplied by the caller and stamped into transition fields;
// the core never authenticates it.
type Actor struct {
	ID string
}

type actorContextKey struct{}

// WithActor adds the acting identity to context.
func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

// GetActor returns the acting identity from context, if any.
func GetActor(ctx context.Context) (Actor, bool) {
	if v, ok := ctx.Value(actorContextKey{}).(Actor); ok {
		return v, true
	}
	return Actor{}, false
}

// GetActorID returns the actor ID from context or empty string.
func GetActorID(ctx context.Context) string {
	if a, ok := GetActor(ctx); ok {
		return a.ID
	}
	return ""
}
