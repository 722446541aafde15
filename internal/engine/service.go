package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/flowboard/internal/domain"
)

// Service is the task dependency / workflow engine. Every mutation runs to
// completion within one request: authorize, apply the intent under the
// optimistic-version retry guard, then fire advisory side effects. No
// cross-request locks are held; per-aggregate ordering comes from the
// store's version check alone.
type Service struct {
	boards   domain.BoardRepository
	lists    domain.ListRepository
	cards    domain.CardRepository
	activity ActivityLogger
	notifier Notifier
	bcast    Broadcaster

	maxAttempts int
}

// NewService wires the engine. activity, notifier and bcast may be nil;
// the corresponding side effects are then skipped.
func NewService(boards domain.BoardRepository, lists domain.ListRepository, cards domain.CardRepository, activity ActivityLogger, notifier Notifier, bcast Broadcaster) *Service {
	return &Service{
		boards:      boards,
		lists:       lists,
		cards:       cards,
		activity:    activity,
		notifier:    notifier,
		bcast:       bcast,
		maxAttempts: DefaultMaxAttempts,
	}
}

// cardScope bundles the aggregates needed to authorize a card-scoped
// operation.
type cardScope struct {
	card  *domain.Card
	list  *domain.List
	board *domain.Board
}

func (s *Service) loadCardScope(ctx context.Context, cardID uuid.UUID) (*cardScope, error) {
	card, err := s.cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	list, err := s.lists.GetByID(ctx, card.ListID)
	if err != nil {
		return nil, err
	}
	board, err := s.boards.GetByID(ctx, list.BoardID)
	if err != nil {
		return nil, err
	}
	return &cardScope{card: card, list: list, board: board}, nil
}

func (s *Service) authorizeCard(ctx context.Context, actor domain.ActorContext, cardID uuid.UUID, action Action) (*cardScope, error) {
	scope, err := s.loadCardScope(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if !canActOnCard(actor, scope.board, scope.card, action) {
		return nil, fmt.Errorf("engine: %s on card %s: %w", action, cardID, domain.ErrForbidden)
	}
	return scope, nil
}

// TaskSpec is the input for task creation.
type TaskSpec struct {
	Title              string
	DueDate            *time.Time
	Position           *int
	AssignedTo         []uuid.UUID
	DependsOn          *uuid.UUID
	AutoAssignOnUnlock bool
	AssignToOnUnlock   []uuid.UUID
}

// TaskUpdate carries optional field-level deltas for a task. Nil fields are
// left untouched. DependsOnSet distinguishes "clear the dependency" from
// "don't touch it".
type TaskUpdate struct {
	Title              *string
	DueDate            *time.Time
	AssignedTo         *[]uuid.UUID
	DependsOn          *uuid.UUID
	DependsOnSet       bool
	AutoAssignOnUnlock *bool
	AssignToOnUnlock   *[]uuid.UUID
	Completed          *bool
}

// TaskMutationResult is returned by task mutations so the HTTP layer can
// report unlocks and workflow progression to the client.
type TaskMutationResult struct {
	Card        *domain.Card
	Task        *domain.Task
	Unlocked    []UnlockedTask
	Progression Progression
}

// CreateTask adds a task to a card. A dependency, when given, must resolve
// within the same card; the new task starts locked exactly when its
// predecessor is incomplete.
func (s *Service) CreateTask(ctx context.Context, actor domain.ActorContext, cardID uuid.UUID, spec TaskSpec) (*TaskMutationResult, error) {
	if spec.Title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}

	scope, err := s.authorizeCard(ctx, actor, cardID, ActionWrite)
	if err != nil {
		return nil, err
	}

	taskID := uuid.New()
	var task *domain.Task
	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		task = &domain.Task{
			ID:                 taskID,
			Title:              spec.Title,
			DueDate:            spec.DueDate,
			AssignedTo:         append([]uuid.UUID(nil), spec.AssignedTo...),
			AutoAssignOnUnlock: spec.AutoAssignOnUnlock,
			AssignToOnUnlock:   append([]uuid.UUID(nil), spec.AssignToOnUnlock...),
			Subtasks:           map[uuid.UUID]*domain.Subtask{},
		}
		if err := SetDependency(card, taskID, spec.DependsOn, task); err != nil {
			return err
		}
		Insert(card.TasksInOrder(), task, spec.Position)
		if card.Tasks == nil {
			card.Tasks = map[uuid.UUID]*domain.Task{}
		}
		card.Tasks[taskID] = task
		card.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "task_created", actor, scope, taskID, map[string]any{"title": task.Title})
	if len(task.AssignedTo) > 0 {
		s.notifyAssignment(ctx, actor, scope, task, task.AssignedTo)
	}
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID, Task: task})

	return &TaskMutationResult{Card: card, Task: task}, nil
}

// UpdateTask applies field deltas to a task. Setting Completed routes
// through the unlock engine and workflow progression exactly as the
// dedicated CompleteTask call does.
func (s *Service) UpdateTask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID, upd TaskUpdate) (*TaskMutationResult, error) {
	if upd.Title != nil && *upd.Title == "" {
		return nil, domain.NewValidationError("title", "must not be empty")
	}

	scope, err := s.authorizeCard(ctx, actor, cardID, ActionWrite)
	if err != nil {
		return nil, err
	}

	stages, err := s.boardStages(ctx, scope.board.ID)
	if err != nil {
		return nil, err
	}

	var (
		task     *domain.Task
		unlocked []UnlockedTask
		prog     Progression
		assigned []uuid.UUID
		nextList *domain.List
	)
	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		unlocked, assigned, nextList = nil, nil, nil
		prog = Progression{}

		t, ok := card.Tasks[taskID]
		if !ok {
			return fmt.Errorf("engine.UpdateTask: task %s: %w", taskID, domain.ErrNotFound)
		}
		task = t

		if upd.Title != nil {
			t.Title = *upd.Title
		}
		if upd.DueDate != nil {
			t.DueDate = upd.DueDate
		}
		if upd.AssignedTo != nil {
			assigned = mergeAssignees(t, *upd.AssignedTo)
		}
		if upd.AutoAssignOnUnlock != nil {
			t.AutoAssignOnUnlock = *upd.AutoAssignOnUnlock
		}
		if upd.AssignToOnUnlock != nil {
			t.AssignToOnUnlock = append([]uuid.UUID(nil), (*upd.AssignToOnUnlock)...)
		}
		if upd.DependsOnSet {
			if err := SetDependency(card, taskID, upd.DependsOn, t); err != nil {
				return err
			}
		}
		if upd.Completed != nil {
			if *upd.Completed {
				// The unlock pass and stage evaluation fire on the
				// incomplete-to-complete transition only; replaying a
				// complete request changes nothing.
				if !t.Completed {
					completed, ul, err := CompleteTask(card, taskID, actor.UserID)
					if err != nil {
						return err
					}
					task = completed
					unlocked = ul
					prog, nextList = EvaluateStage(card, stages)
				}
			} else {
				if _, err := UncompleteTask(card, taskID); err != nil {
					return err
				}
			}
		}
		card.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	if nextList != nil {
		if moveErr := s.relocateCard(ctx, card.ID, scope.card.ListID, nextList.ID, nil); moveErr != nil {
			log.Warn().Err(moveErr).Str("card_id", card.ID.String()).Msg("workflow stage move failed")
			prog = Progression{FromStage: prog.FromStage, ToStage: prog.FromStage}
		} else if fresh, loadErr := s.cards.GetByID(ctx, card.ID); loadErr == nil {
			// Return the relocated card, not the pre-move copy.
			card = fresh
			if t, ok := fresh.Tasks[taskID]; ok {
				task = t
			}
		}
	}

	s.finishTaskCompletion(ctx, actor, scope, card, task, unlocked, prog, assigned, "task_updated")

	return &TaskMutationResult{Card: card, Task: task, Unlocked: unlocked, Progression: prog}, nil
}

// CompleteTask marks a task done, unlocks its dependents and evaluates
// workflow progression. Completing a locked task fails with ErrForbidden
// and changes nothing.
func (s *Service) CompleteTask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID) (*TaskMutationResult, error) {
	done := true
	return s.UpdateTask(ctx, actor, cardID, taskID, TaskUpdate{Completed: &done})
}

// DeleteTask removes a task. Tasks that depended on it are detached and
// unlocked rather than left referencing a dangling id.
func (s *Service) DeleteTask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID) error {
	scope, err := s.authorizeCard(ctx, actor, cardID, ActionDelete)
	if err != nil {
		return err
	}

	var detached []*domain.Task
	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		if _, ok := card.Tasks[taskID]; !ok {
			return fmt.Errorf("engine.DeleteTask: task %s: %w", taskID, domain.ErrNotFound)
		}
		detached = DetachDependents(card, taskID)
		if _, err := Remove(card.TasksInOrder(), taskID); err != nil {
			return err
		}
		delete(card.Tasks, taskID)
		card.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return err
	}

	meta := map[string]any{}
	if len(detached) > 0 {
		ids := make([]string, 0, len(detached))
		for _, t := range detached {
			ids = append(ids, t.ID.String())
		}
		meta["detached_dependents"] = ids
	}
	s.recordActivity(ctx, "task_deleted", actor, scope, taskID, meta)
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID})

	return nil
}

// ReorderTask moves a task to a new position among its card siblings.
func (s *Service) ReorderTask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID, newPos int) (*TaskMutationResult, error) {
	scope, err := s.authorizeCard(ctx, actor, cardID, ActionWrite)
	if err != nil {
		return nil, err
	}

	var task *domain.Task
	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		t, ok := card.Tasks[taskID]
		if !ok {
			return fmt.Errorf("engine.ReorderTask: task %s: %w", taskID, domain.ErrNotFound)
		}
		task = t
		if err := Move(card.TasksInOrder(), taskID, newPos); err != nil {
			return err
		}
		card.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "task_reordered", actor, scope, taskID, map[string]any{"position": task.Position})
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID, Task: task})

	return &TaskMutationResult{Card: card, Task: task}, nil
}

// saveCardWithRetry wraps a card intent in the optimistic-version guard.
func (s *Service) saveCardWithRetry(ctx context.Context, cardID uuid.UUID, intent func(*domain.Card) error) (*domain.Card, error) {
	return WithRetry(ctx, s.maxAttempts,
		func(ctx context.Context) (*domain.Card, error) { return s.cards.GetByID(ctx, cardID) },
		intent,
		func(ctx context.Context, c *domain.Card) error { return s.cards.Save(ctx, c) },
	)
}

// boardStages loads the board's ordered non-archived stage lists.
func (s *Service) boardStages(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error) {
	lists, err := s.lists.ListByBoard(ctx, boardID)
	if err != nil {
		return nil, err
	}
	return StageLists(lists), nil
}

// finishTaskCompletion fires the advisory side effects shared by the task
// completion paths: activity entries, assignment notifications for direct
// and unlock-time assignees, and the card event broadcast.
func (s *Service) finishTaskCompletion(ctx context.Context, actor domain.ActorContext, scope *cardScope, card *domain.Card, task *domain.Task, unlocked []UnlockedTask, prog Progression, assigned []uuid.UUID, activityType string) {
	s.recordActivity(ctx, activityType, actor, scope, task.ID, map[string]any{"completed": task.Completed})
	for _, u := range unlocked {
		s.recordActivity(ctx, "task_unlocked", actor, scope, u.Task.ID, map[string]any{"unlocked_by": task.ID.String()})
		if len(u.Assigned) > 0 {
			s.notifyAssignment(ctx, actor, scope, u.Task, u.Assigned)
		}
	}
	if len(assigned) > 0 {
		s.notifyAssignment(ctx, actor, scope, task, assigned)
	}
	if prog.Advanced {
		s.recordActivity(ctx, "card_stage_advanced", actor, scope, uuid.Nil, map[string]any{
			"from_stage": prog.FromStage,
			"to_stage":   prog.ToStage,
		})
	}

	unlockedTasks := make([]*domain.Task, 0, len(unlocked))
	for _, u := range unlocked {
		unlockedTasks = append(unlockedTasks, u.Task)
	}
	s.broadcast(ctx, CardEvent{
		BoardID:            scope.board.ID,
		CardID:             card.ID,
		Task:               task,
		UnlockedTasks:      unlockedTasks,
		WorkflowProgressed: prog.Advanced || prog.Completed,
	})
}

// recordActivity logs to the activity feed. Fire-and-forget: failures are
// logged and swallowed.
func (s *Service) recordActivity(ctx context.Context, typ string, actor domain.ActorContext, scope *cardScope, taskID uuid.UUID, meta map[string]any) {
	if s.activity == nil {
		return
	}
	entry := &domain.ActivityEntry{
		ID:      uuid.New(),
		Type:    typ,
		ActorID: actor.UserID,
		Refs: domain.ActivityRefs{
			BoardID: scope.board.ID,
			ListID:  scope.list.ID,
			CardID:  scope.card.ID,
			TaskID:  taskID,
		},
		Metadata:  meta,
		CreatedAt: time.Now(),
	}
	if err := s.activity.Record(ctx, entry); err != nil {
		log.Warn().Err(err).Str("type", typ).Msg("activity record failed")
	}
}

func (s *Service) notifyAssignment(ctx context.Context, actor domain.ActorContext, scope *cardScope, task *domain.Task, users []uuid.UUID) {
	if s.notifier == nil || len(users) == 0 {
		return
	}
	err := s.notifier.NotifyAssignment(ctx, TaskAssignment{
		TaskTitle:  task.Title,
		AssignedTo: users,
		AssignedBy: actor.UserID,
		DueDate:    task.DueDate,
		BoardName:  scope.board.Name,
		CardName:   scope.card.Title,
	})
	if err != nil {
		log.Warn().Err(err).Str("task", task.Title).Msg("assignment notification failed")
	}
}

func (s *Service) broadcast(ctx context.Context, evt CardEvent) {
	if s.bcast == nil {
		return
	}
	if err := s.bcast.BroadcastCardEvent(ctx, evt); err != nil {
		log.Warn().Err(err).Str("card_id", evt.CardID.String()).Msg("card event broadcast failed")
	}
}
