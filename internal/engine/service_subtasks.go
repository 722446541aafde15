package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/flowboard/internal/domain"
)

// SubtaskUpdate carries optional field deltas for a subtask.
type SubtaskUpdate struct {
	Text      *string
	Completed *bool
}

// AddSubtask appends a subtask to a task, or inserts it at an explicit
// position. Subtasks mirror tasks but carry no dependency semantics and do
// not feed workflow progression.
func (s *Service) AddSubtask(ctx context.Context, actor domain.ActorContext, cardID, taskID uuid.UUID, text string, position *int) (*domain.Subtask, error) {
	if text == "" {
		return nil, domain.NewValidationError("text", "must not be empty")
	}

	scope, err := s.authorizeCard(ctx, actor, cardID, ActionWrite)
	if err != nil {
		return nil, err
	}

	subID := uuid.New()
	var sub *domain.Subtask
	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		task, ok := card.Tasks[taskID]
		if !ok {
			return fmt.Errorf("engine.AddSubtask: task %s: %w", taskID, domain.ErrNotFound)
		}
		sub = &domain.Subtask{ID: subID, Text: text}
		Insert(task.SubtasksInOrder(), sub, position)
		if task.Subtasks == nil {
			task.Subtasks = map[uuid.UUID]*domain.Subtask{}
		}
		task.Subtasks[subID] = sub
		card.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "subtask_added", actor, scope, taskID, map[string]any{"text": text})
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID, Task: card.Tasks[taskID]})

	return sub, nil
}

// UpdateSubtask applies field deltas to a subtask.
func (s *Service) UpdateSubtask(ctx context.Context, actor domain.ActorContext, cardID, taskID, subtaskID uuid.UUID, upd SubtaskUpdate) (*domain.Subtask, error) {
	if upd.Text != nil && *upd.Text == "" {
		return nil, domain.NewValidationError("text", "must not be empty")
	}

	scope, err := s.authorizeCard(ctx, actor, cardID, ActionWrite)
	if err != nil {
		return nil, err
	}

	var sub *domain.Subtask
	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		task, ok := card.Tasks[taskID]
		if !ok {
			return fmt.Errorf("engine.UpdateSubtask: task %s: %w", taskID, domain.ErrNotFound)
		}
		st, ok := task.Subtasks[subtaskID]
		if !ok {
			return fmt.Errorf("engine.UpdateSubtask: subtask %s: %w", subtaskID, domain.ErrNotFound)
		}
		sub = st
		if upd.Text != nil {
			st.Text = *upd.Text
		}
		if upd.Completed != nil {
			st.Completed = *upd.Completed
			if *upd.Completed {
				uid := actor.UserID
				st.CompletedBy = &uid
			} else {
				st.CompletedBy = nil
			}
		}
		card.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "subtask_updated", actor, scope, taskID, map[string]any{"subtask_id": subtaskID.String()})
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID, Task: card.Tasks[taskID]})

	return sub, nil
}

// DeleteSubtask removes a subtask and closes the position gap it leaves.
func (s *Service) DeleteSubtask(ctx context.Context, actor domain.ActorContext, cardID, taskID, subtaskID uuid.UUID) error {
	scope, err := s.authorizeCard(ctx, actor, cardID, ActionDelete)
	if err != nil {
		return err
	}

	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		task, ok := card.Tasks[taskID]
		if !ok {
			return fmt.Errorf("engine.DeleteSubtask: task %s: %w", taskID, domain.ErrNotFound)
		}
		if _, ok := task.Subtasks[subtaskID]; !ok {
			return fmt.Errorf("engine.DeleteSubtask: subtask %s: %w", subtaskID, domain.ErrNotFound)
		}
		if _, err := Remove(task.SubtasksInOrder(), subtaskID); err != nil {
			return err
		}
		delete(task.Subtasks, subtaskID)
		card.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return err
	}

	s.recordActivity(ctx, "subtask_deleted", actor, scope, taskID, map[string]any{"subtask_id": subtaskID.String()})
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID})

	return nil
}

// AddChecklistItem appends a checklist line to the card.
func (s *Service) AddChecklistItem(ctx context.Context, actor domain.ActorContext, cardID uuid.UUID, text string) (*domain.ChecklistItem, error) {
	if text == "" {
		return nil, domain.NewValidationError("text", "must not be empty")
	}

	scope, err := s.authorizeCard(ctx, actor, cardID, ActionWrite)
	if err != nil {
		return nil, err
	}

	itemID := uuid.New()
	var item domain.ChecklistItem
	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		item = domain.ChecklistItem{ID: itemID, Text: text}
		card.Checklist = append(card.Checklist, item)
		card.UpdatedAt = time.Now()
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordActivity(ctx, "checklist_item_added", actor, scope, uuid.Nil, map[string]any{"text": text})
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID})

	return &item, nil
}

// ToggleChecklistItem sets a checklist item's completion. Checking the last
// open item evaluates workflow progression exactly like a task completion.
func (s *Service) ToggleChecklistItem(ctx context.Context, actor domain.ActorContext, cardID, itemID uuid.UUID, completed bool) (*TaskMutationResult, error) {
	scope, err := s.authorizeCard(ctx, actor, cardID, ActionWrite)
	if err != nil {
		return nil, err
	}

	stages, err := s.boardStages(ctx, scope.board.ID)
	if err != nil {
		return nil, err
	}

	var (
		prog     Progression
		nextList *domain.List
	)
	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		prog, nextList = Progression{}, nil

		idx := -1
		for i := range card.Checklist {
			if card.Checklist[i].ID == itemID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("engine.ToggleChecklistItem: item %s: %w", itemID, domain.ErrNotFound)
		}
		// Stage evaluation fires on the unchecked-to-checked transition
		// only; re-checking a checked item changes nothing.
		wasCompleted := card.Checklist[idx].Completed
		card.Checklist[idx].Completed = completed
		if completed && !wasCompleted {
			prog, nextList = EvaluateStage(card, stages)
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
		}
	}

	s.recordActivity(ctx, "checklist_item_toggled", actor, scope, uuid.Nil, map[string]any{
		"item_id":   itemID.String(),
		"completed": completed,
	})
	if prog.Advanced {
		s.recordActivity(ctx, "card_stage_advanced", actor, scope, uuid.Nil, map[string]any{
			"from_stage": prog.FromStage,
			"to_stage":   prog.ToStage,
		})
	}
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID, WorkflowProgressed: prog.Advanced || prog.Completed})

	return &TaskMutationResult{Card: card, Progression: prog}, nil
}

// RemoveChecklistItem deletes a checklist line.
func (s *Service) RemoveChecklistItem(ctx context.Context, actor domain.ActorContext, cardID, itemID uuid.UUID) error {
	scope, err := s.authorizeCard(ctx, actor, cardID, ActionDelete)
	if err != nil {
		return err
	}

	card, err := s.saveCardWithRetry(ctx, cardID, func(card *domain.Card) error {
		for i := range card.Checklist {
			if card.Checklist[i].ID == itemID {
				card.Checklist = append(card.Checklist[:i], card.Checklist[i+1:]...)
				card.UpdatedAt = time.Now()
				return nil
			}
		}
		return fmt.Errorf("engine.RemoveChecklistItem: item %s: %w", itemID, domain.ErrNotFound)
	})
	if err != nil {
		return err
	}

	s.recordActivity(ctx, "checklist_item_removed", actor, scope, uuid.Nil, map[string]any{"item_id": itemID.String()})
	s.broadcast(ctx, CardEvent{BoardID: scope.board.ID, CardID: card.ID})

	return nil
}
