package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
)

// UnlockedTask pairs a task that just became unlocked with the users that
// were auto-assigned to it in the same pass. Assigned holds only the delta
// (users not already on the task), so callers can notify exactly the new
// assignees.
type UnlockedTask struct {
	Task     *domain.Task
	Assigned []uuid.UUID
}

// SetDependency validates and applies a dependency edge for a task within
// its card. The predecessor must exist in the same card, must not be the
// task itself, and must not close a cycle; violations reject the edge
// before any state change. Passing a nil dependsOn clears the edge and the
// lock. The task's lock state is recomputed from the predecessor's
// completion.
//
// taskID may reference a task not yet inserted into card.Tasks (creation
// path); the cycle walk then trivially passes.
func SetDependency(card *domain.Card, taskID uuid.UUID, dependsOn *uuid.UUID, task *domain.Task) error {
	if dependsOn == nil {
		task.DependsOn = nil
		task.IsLocked = false
		return nil
	}

	if *dependsOn == taskID {
		return domain.NewValidationError("dependsOn", "task cannot depend on itself")
	}

	pred, ok := card.Tasks[*dependsOn]
	if !ok {
		return fmt.Errorf("engine.SetDependency: dependency %s: %w", *dependsOn, domain.ErrNotFound)
	}

	// Walk the predecessor chain; reaching taskID means the new edge would
	// close a cycle.
	seen := map[uuid.UUID]bool{}
	for cur := pred; cur != nil && cur.DependsOn != nil; {
		next := *cur.DependsOn
		if next == taskID {
			return domain.NewValidationError("dependsOn", "dependency chain would form a cycle")
		}
		if seen[next] {
			break
		}
		seen[next] = true
		cur = card.Tasks[next]
	}

	task.DependsOn = dependsOn
	task.IsLocked = !pred.Completed
	return nil
}

// CompleteTask marks a task completed and evaluates the card's dependency
// graph in one pass. A locked task cannot be completed out of order: the
// call fails with ErrForbidden and changes nothing. On success every
// sibling whose DependsOn references the completed task unlocks, and tasks
// flagged AutoAssignOnUnlock have their AssignToOnUnlock set merged into
// AssignedTo (idempotent union). Multiple dependents all unlock in the same
// pass.
func CompleteTask(card *domain.Card, taskID, userID uuid.UUID) (*domain.Task, []UnlockedTask, error) {
	task, ok := card.Tasks[taskID]
	if !ok {
		return nil, nil, fmt.Errorf("engine.CompleteTask: task %s: %w", taskID, domain.ErrNotFound)
	}
	if task.IsLocked {
		return nil, nil, fmt.Errorf("engine.CompleteTask: task %s is locked by its dependency: %w", taskID, domain.ErrForbidden)
	}

	task.Completed = true
	task.CompletedBy = &userID

	var unlocked []UnlockedTask
	for _, sibling := range card.TasksInOrder() {
		if sibling.DependsOn == nil || *sibling.DependsOn != taskID || !sibling.IsLocked {
			continue
		}
		sibling.IsLocked = false

		var delta []uuid.UUID
		if sibling.AutoAssignOnUnlock {
			delta = mergeAssignees(sibling, sibling.AssignToOnUnlock)
		}
		unlocked = append(unlocked, UnlockedTask{Task: sibling, Assigned: delta})
	}

	return task, unlocked, nil
}

// UncompleteTask toggles a task's completed flag back off. This is an
// explicit user action and deliberately asymmetric: locks already resolved
// stay resolved, and any workflow progression the completion caused is not
// reverted.
func UncompleteTask(card *domain.Card, taskID uuid.UUID) (*domain.Task, error) {
	task, ok := card.Tasks[taskID]
	if !ok {
		return nil, fmt.Errorf("engine.UncompleteTask: task %s: %w", taskID, domain.ErrNotFound)
	}
	task.Completed = false
	task.CompletedBy = nil
	return task, nil
}

// DetachDependents removes a task from its card and releases every task
// that depended on it: their DependsOn is cleared and they unlock without
// auto-assignment. Leaving dependents locked against a deleted id would
// strand them permanently. Returns the detached dependents.
func DetachDependents(card *domain.Card, taskID uuid.UUID) []*domain.Task {
	var detached []*domain.Task
	for _, sibling := range card.TasksInOrder() {
		if sibling.DependsOn != nil && *sibling.DependsOn == taskID {
			sibling.DependsOn = nil
			sibling.IsLocked = false
			detached = append(detached, sibling)
		}
	}
	return detached
}

// mergeAssignees unions users into the task's AssignedTo set and returns
// only the users that were actually added.
func mergeAssignees(task *domain.Task, users []uuid.UUID) []uuid.UUID {
	existing := make(map[uuid.UUID]bool, len(task.AssignedTo))
	for _, u := range task.AssignedTo {
		existing[u] = true
	}

	var added []uuid.UUID
	for _, u := range users {
		if existing[u] {
			continue
		}
		existing[u] = true
		task.AssignedTo = append(task.AssignedTo, u)
		added = append(added, u)
	}
	return added
}
