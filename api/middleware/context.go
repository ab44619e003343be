package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/cardhaus/cardhaus-backend/pkg/types"
)

type contextKey string

const (
	ctxUserID       contextKey = "user_id"
	ctxRole         contextKey = "actor_role"
	ctxAccessID     contextKey = "access_id"
	ctxSessionToken contextKey = "session_token"
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

func AccessIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessID).(string); ok {
		return v
	}
	return ""
}

func SessionTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionToken).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithSessionToken injects the anonymous cart token into the context.
func WithSessionToken(ctx context.Context, token string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionToken, token)
}

// OwnerFromContext resolves the cart/order owner for the request. An
// authenticated user wins over an anonymous session token. The zero OwnerRef
// is returned when neither is present.
func OwnerFromContext(ctx context.Context) types.OwnerRef {
	if raw := UserIDFromContext(ctx); raw != "" {
		if userID, err := uuid.Parse(raw); err == nil {
			return types.UserOwner(userID)
		}
	}
	if token := SessionTokenFromContext(ctx); token != "" {
		return types.SessionOwner(token)
	}
	return types.OwnerRef{}
}
