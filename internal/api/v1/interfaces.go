package v1

import (
	"context"

	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
	"github.com/gosuda/flowboard/internal/engine"
)

// DataStore abstracts the repository accessor pattern for handler testing.
// *postgres.Store satisfies this interface.
type DataStore interface {
	Boards() domain.BoardRepository
	Lists() domain.ListRepository
	Cards() domain.CardRepository
	Activity() domain.ActivityRepository
}

// Engine abstracts the workflow engine for handler testing.
// *engine.Service satisfies this interface.
type Engine interface {
	CreateBoard(ctx context.Context, actor domain.ActorContext, name string) (*domain.Board, []*domain.List, error)
	CreateList(ctx context.Context, actor domain.ActorContext, boardID uuid.UUID, title string, typ domain.ListType) (*domain.List, error)
	ArchiveList(ctx context.Context, actor domain.ActorContext, boardID, listID uuid.UUID) error
	ReorderList(ctx context.Context, actor domain.ActorContext, boardID, listID uuid.UUID, newPos int) error

	CreateCard(ctx context.Context, actor domain.ActorContext, listID uuid.UUID, title string, priority domain.CardPriority) (*domain.Card, error)
	DeleteCard(ctx context.Context, actor domain.ActorContext, cardID uuid.UUID) error
	MoveCardToList(ctx context.Context, actor domain.ActorContext, cardID, targetListID uuid.UUID, newPos int) (*domain.Card, error)
	ReorderCard(ctx context.Context, actor domain.ActorContext, cardID uuid.UUID, newPos int) (*domain.Card, error)

	CreateTask(ctx context.Context, actor domain.ActorContext, cardID uuid.UUID, spec engine.TaskSpec) (*engine.TaskMutationResult, error)
	UpdateTask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID, upd engine.TaskUpdate) (*engine.TaskMutationResult, error)
	DeleteTask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID) error
	ReorderTask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID, newPos int) (*engine.TaskMutationResult, error)

	AddSubtask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID, text string, position *int) (*domain.Subtask, error)
	UpdateSubtask(ctx context.Context, actor domain.ActorContext, cardID, taskID, subtaskID uuid.UUID, upd engine.SubtaskUpdate) (*domain.Subtask, error)
	DeleteSubtask(ctx context.Context, actor domain.ActorContext, cardID, taskID, subtaskID uuid.UUID) error

	AddChecklistItem(ctx context.Context, actor domain.ActorContext, cardID uuid.UUID, text string) (*domain.ChecklistItem, error)
	ToggleChecklistItem(ctx context.Context, actor domain.ActorContext, cardID, itemID uuid.UUID, completed bool) (*engine.TaskMutationResult, error)
	RemoveChecklistItem(ctx context.Context, actor domain.ActorContext, cardID, itemID uuid.UUID) error
}
