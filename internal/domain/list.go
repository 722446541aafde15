package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ListType classifies a list as one of the fixed workflow stages, or as a
// custom list outside the stage sequence.
type ListType string

const (
	ListTypeTodo       ListType = "todo"
	ListTypeInProgress ListType = "in_progress"
	ListTypeReview     ListType = "review"
	ListTypeDone       ListType = "done"
	ListTypeCustom     ListType = "custom"
)

// List is one stage of a board. Position is dense within the board: the
// board's N lists always occupy positions 1..N.
type List struct {
	ID         uuid.UUID
	BoardID    uuid.UUID
	Title      string
	Position   int
	Type       ListType
	IsArchived bool
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ListRepository interface {
	Create(ctx context.Context, l *List) error
	GetByID(ctx context.Context, id uuid.UUID) (*List, error)
	// ListByBoard returns all lists of a board ordered by position,
	// including archived ones.
	ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*List, error)
	// Save persists the list only when the stored version matches
	// l.Version, then increments it. A mismatch returns ErrConflict.
	Save(ctx context.Context, l *List) error
	Delete(ctx context.Context, id uuid.UUID) error
}
