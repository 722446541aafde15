package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
)

type contextKey string

const (
	ContextKeyUserID     contextKey = "user_id"
	ContextKeyGlobalRole contextKey = "global_role"
)

func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(uuid.UUID)
	return v, ok
}

func GlobalRoleFromContext(ctx context.Context) (domain.GlobalRole, bool) {
	v, ok := ctx.Value(ContextKeyGlobalRole).(domain.GlobalRole)
	return v, ok
}

// ActorFromContext assembles the actor identity injected by Auth. Engine
// operations take this explicitly; there is no implicit current user.
func ActorFromContext(ctx context.Context) (domain.ActorContext, bool) {
	userID, ok := UserIDFromContext(ctx)
	if !ok {
		return domain.ActorContext{}, false
	}
	role, ok := GlobalRoleFromContext(ctx)
	if !ok {
		return domain.ActorContext{}, false
	}
	return domain.ActorContext{UserID: userID, GlobalRole: role}, true
}
