package usercontext

import (
	"context"
	"testing"

	obscontext "github.com/smallbiznis/journalpay/internal/observability/context"
	"github.com/stretchr/testify/assert"
)

func TestActorRoundTrip(t *testing.T) {
	ctx := WithActor(context.Background(), Actor{ID: 42, Role: "writer"})

	actor, ok := ActorFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, "writer", actor.Role)
	assert.Equal(t, "42", obscontext.UserIDFromContext(ctx))
}

func TestMissingActor(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = ActorFromContext(WithActor(context.Background(), Actor{}))
	assert.False(t, ok)
}
