package usercontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
	obscontext "github.com/smallbiznis/journalpay/internal/observability/context"
)

// Actor is the authenticated caller of a request.
type Actor struct {
	ID   snowflake.ID
	Role string
}

type actorKey struct{}

// WithActor stores the actor and tags the context for log correlation.
func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = context.WithValue(ctx, actorKey{}, actor)
	return obscontext.WithUserID(ctx, actor.ID.String())
}

// ActorFromContext returns the actor, if one was resolved for this request.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	if !ok || actor.ID == 0 {
		return Actor{}, false
	}
	return actor, true
}

func UserIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	actor, ok := ActorFromContext(ctx)
	return actor.ID, ok
}
