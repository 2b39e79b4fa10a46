package shared

import "context"

type actorContextKey struct{}

// SystemActorID attributes scheduler-run operations in logs and audit
// records; real users always have positive ids.
const SystemActorID int64 = -1

// ContextWithActor stores the authenticated actor id in context. Authentication
// itself happens upstream; the gateway forwards the resolved identity.
func ContextWithActor(ctx context.Context, actorID int64) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actorID)
}

// ActorFromContext extracts the actor id from context, zero when absent.
func ActorFromContext(ctx context.Context) int64 {
	id, _ := ctx.Value(actorContextKey{}).(int64)
	return id
}
