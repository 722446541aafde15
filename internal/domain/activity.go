package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ActivityRefs locates an activity entry in the board hierarchy. Zero-value
// UUIDs mean "not applicable" (e.g. a board rename has no card).
type ActivityRefs struct {
	BoardID uuid.UUID
	ListID  uuid.UUID
	CardID  uuid.UUID
	TaskID  uuid.UUID
}

// ActivityEntry records a single engine mutation for the activity feed.
// Recording is fire-and-forget: failures never block the mutation.
type ActivityEntry struct {
	ID        uuid.UUID
	Type      string // "task_completed", "task_unlocked", "card_moved", etc.
	ActorID   uuid.UUID
	Refs      ActivityRefs
	Metadata  map[string]any
	CreatedAt time.Time
}

type ActivityRepository interface {
	Record(ctx context.Context, entry *ActivityEntry) error
	ListByBoard(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*ActivityEntry, error)
	ListByCard(ctx context.Context, cardID uuid.UUID) ([]*ActivityEntry, error)
}
