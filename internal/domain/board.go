package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// BoardRole is a user's role within a single board's member set.
type BoardRole string

const (
	BoardRoleOwner  BoardRole = "owner"
	BoardRoleAdmin  BoardRole = "admin"
	BoardRoleEditor BoardRole = "editor"
	BoardRoleViewer BoardRole = "viewer"
)

type BoardMember struct {
	UserID uuid.UUID
	Role   BoardRole
}

// Board owns an ordered set of Lists (its workflow stages). TotalLists and
// TotalCards are denormalized counters maintained by the engine.
type Board struct {
	ID         uuid.UUID
	Name       string
	CreatedBy  uuid.UUID
	Members    []BoardMember
	TotalLists int
	TotalCards int
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// MemberRole returns the board role for a user, if the user is a member.
func (b *Board) MemberRole(userID uuid.UUID) (BoardRole, bool) {
	for _, m := range b.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

type BoardRepository interface {
	Create(ctx context.Context, b *Board) error
	GetByID(ctx context.Context, id uuid.UUID) (*Board, error)
	List(ctx context.Context, userID uuid.UUID) ([]*Board, error)
	// Save persists the board only when the stored version matches
	// b.Version, then increments it. A mismatch returns ErrConflict.
	Save(ctx context.Context, b *Board) error
	Delete(ctx context.Context, id uuid.UUID) error
}
