package shared

import "context"

type actorContextKey struct{}

// ContextWithActorID stores the authenticated user id in context.
func ContextWithActorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, id)
}

// ActorIDFromContext extracts the authenticated user id from context.
func ActorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorContextKey{}).(int64)
	return id, ok && id > 0
}
