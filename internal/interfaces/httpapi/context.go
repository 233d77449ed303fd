package httpapi

import (
	"context"

	"github.com/pitchside/matchtracker/internal/domain/tracker"
)

type contextKey string

const principalContextKey contextKey = "auth_principal"

func withPrincipal(ctx context.Context, p tracker.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}

func principalFromContext(ctx context.Context) (tracker.Principal, bool) {
	p, ok := ctx.Value(principalContextKey).(tracker.Principal)
	return p, ok
}
