package middleware

import (
	"context"

	"github.com/kabidey/privity-sub003/pkg/auth"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
	ctxCaller contextKey = "caller"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// CallerFromContext returns the engine caller seeded by the auth middleware.
func CallerFromContext(ctx context.Context) auth.Caller {
	if ctx == nil {
		return auth.Caller{}
	}
	if v, ok := ctx.Value(ctxCaller).(auth.Caller); ok {
		return v
	}
	return auth.Caller{}
}

// WithCaller injects a caller into the context. Tests use it to skip the
// middleware chain.
func WithCaller(ctx context.Context, caller auth.Caller) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, caller.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(caller.Role))
	return context.WithValue(ctx, ctxCaller, caller)
}
