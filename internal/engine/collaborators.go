package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
)

// The engine calls out to three collaborators around every successful
// mutation. All three are advisory: their failures are caught and logged,
// never propagated to the caller.

// ActivityLogger records mutations for the board activity feed.
type ActivityLogger interface {
	Record(ctx context.Context, entry *domain.ActivityEntry) error
}

// TaskAssignment is the payload sent whenever a task is assigned, either
// directly or by auto-assignment at unlock time.
type TaskAssignment struct {
	TaskTitle  string
	AssignedTo []uuid.UUID
	AssignedBy uuid.UUID
	DueDate    *time.Time
	BoardName  string
	CardName   string
}

// Notifier delivers assignment notifications (email, Slack, ...).
type Notifier interface {
	NotifyAssignment(ctx context.Context, a TaskAssignment) error
}

// CardEvent is broadcast to interested clients after a successful save.
// Purely advisory; no delivery guarantee.
type CardEvent struct {
	BoardID            uuid.UUID      `json:"board_id"`
	CardID             uuid.UUID      `json:"card_id"`
	Task               *domain.Task   `json:"task,omitempty"`
	UnlockedTasks      []*domain.Task `json:"unlocked_tasks,omitempty"`
	WorkflowProgressed bool           `json:"workflow_progressed"`
}

// Broadcaster fans a card event out to connected clients.
type Broadcaster interface {
	BroadcastCardEvent(ctx context.Context, evt CardEvent) error
}
