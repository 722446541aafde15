package domain

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

// CardRole is a user's role within a single card's member set. Card roles
// take precedence over board roles for card-scoped actions; a card member
// without board membership is a guest.
type CardRole string

const (
	CardRoleViewer         CardRole = "viewer"
	CardRoleCommenter      CardRole = "commenter"
	CardRoleContributor    CardRole = "contributor"
	CardRoleLead           CardRole = "lead"
	CardRoleProjectManager CardRole = "project_manager"
)

type CardMember struct {
	UserID uuid.UUID
	Role   CardRole
}

type CardPriority string

const (
	CardPriorityLow    CardPriority = "low"
	CardPriorityMedium CardPriority = "medium"
	CardPriorityHigh   CardPriority = "high"
	CardPriorityUrgent CardPriority = "urgent"
)

// ChecklistItem is a simple completable line on a card. Checklist completion
// feeds workflow evaluation the same way task completion does.
type ChecklistItem struct {
	ID        uuid.UUID
	Text      string
	Completed bool
}

// Subtask mirrors Task's lifecycle but has no dependency semantics.
type Subtask struct {
	ID          uuid.UUID
	Text        string
	Position    int
	Completed   bool
	CompletedBy *uuid.UUID
}

// Task is a unit of work on a card. DependsOn references another task in the
// same card; while that predecessor is incomplete the task is locked and
// cannot be completed. IsLocked is always derivable:
//
//	IsLocked == (DependsOn != nil && !predecessor.Completed)
//
// and once a dependency resolves, IsLocked stays false even if the task's
// own Completed flag is later toggled back off.
type Task struct {
	ID                 uuid.UUID
	Title              string
	Position           int
	DueDate            *time.Time
	AssignedTo         []uuid.UUID
	DependsOn          *uuid.UUID
	IsLocked           bool
	AutoAssignOnUnlock bool
	AssignToOnUnlock   []uuid.UUID
	Completed          bool
	CompletedBy        *uuid.UUID
	Subtasks           map[uuid.UUID]*Subtask
}

// SubtasksInOrder returns the task's subtasks sorted by position.
func (t *Task) SubtasksInOrder() []*Subtask {
	out := make([]*Subtask, 0, len(t.Subtasks))
	for _, s := range t.Subtasks {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// Card is the mutation aggregate: tasks, subtasks and checklist are embedded
// and saved through the card's single save path. Tasks live in a flat map
// keyed by id; sibling order is carried by each task's Position.
type Card struct {
	ID          uuid.UUID
	ListID      uuid.UUID
	Position    int
	Title       string
	Description string
	Priority    CardPriority
	Tasks       map[uuid.UUID]*Task
	Checklist   []ChecklistItem
	Members     []CardMember
	IsCompleted bool
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MemberRole returns the card role for a user, if the user is a card member.
func (c *Card) MemberRole(userID uuid.UUID) (CardRole, bool) {
	for _, m := range c.Members {
		if m.UserID == userID {
			return m.Role, true
		}
	}
	return "", false
}

// TasksInOrder returns the card's tasks sorted by position.
func (c *Card) TasksInOrder() []*Task {
	out := make([]*Task, 0, len(c.Tasks))
	for _, t := range c.Tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

type CardRepository interface {
	Create(ctx context.Context, c *Card) error
	GetByID(ctx context.Context, id uuid.UUID) (*Card, error)
	// ListByList returns the cards of a list ordered by position.
	ListByList(ctx context.Context, listID uuid.UUID) ([]*Card, error)
	// Save persists the card only when the stored version matches
	// c.Version, then increments it. A mismatch returns ErrConflict.
	Save(ctx context.Context, c *Card) error
	Delete(ctx context.Context, id uuid.UUID) error
}
