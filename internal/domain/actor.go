package domain

import "github.com/google/uuid"

// GlobalRole is the platform-wide role carried by every authenticated request.
type GlobalRole string

const (
	GlobalRoleSuperadmin GlobalRole = "superadmin"
	GlobalRoleAdmin      GlobalRole = "admin"
	GlobalRoleMember     GlobalRole = "member"
)

// Bypass reports whether the role skips board/card permission checks entirely.
func (r GlobalRole) Bypass() bool {
	return r == GlobalRoleSuperadmin || r == GlobalRoleAdmin
}

// ActorContext identifies the authenticated user performing an operation.
// It is passed explicitly into every engine call; the engine performs
// authorization only, never authentication.
type ActorContext struct {
	UserID     uuid.UUID
	GlobalRole GlobalRole
}
