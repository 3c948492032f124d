package auditcontext

import (
	"context"
	"strings"
)

type actorKey struct{}

type actor struct {
	typ string
	id  string
}

// WithActor attaches the acting party to ctx for audit entries written
// further down the call chain.
func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	actorType = strings.TrimSpace(actorType)
	if actorType == "" {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, actor{typ: actorType, id: strings.TrimSpace(actorID)})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	a, ok := ctx.Value(actorKey{}).(actor)
	if !ok {
		return "", ""
	}
	return a.typ, a.id
}
