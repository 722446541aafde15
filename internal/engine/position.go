package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
)

// Positioned is any entity carrying a dense sibling position. Lists in a
// board, cards in a list, tasks in a card and subtasks in a task all
// satisfy it via pointer receivers, so the helpers below mutate positions
// in place.
type Positioned interface {
	EntityID() uuid.UUID
	GetPosition() int
	SetPosition(int)
}

// Insert places item among its siblings and returns the assigned position.
// With an explicit position every sibling at or beyond it shifts up one;
// without one the item is appended after the current maximum. Explicit
// positions outside [1, N+1] clamp rather than error.
//
// The invariant before and after: N siblings occupy exactly positions 1..N.
func Insert[T Positioned](items []T, item T, explicit *int) int {
	if explicit == nil {
		item.SetPosition(len(items) + 1)
		return item.GetPosition()
	}

	pos := clamp(*explicit, 1, len(items)+1)
	for _, it := range items {
		if it.GetPosition() >= pos {
			it.SetPosition(it.GetPosition() + 1)
		}
	}
	item.SetPosition(pos)
	return pos
}

// Move repositions one sibling within its collection, shifting only the
// window between the old and new positions. Out-of-range targets clamp to
// [1, N]. Moving an unknown id returns ErrNotFound.
func Move[T Positioned](items []T, id uuid.UUID, newPos int) error {
	var moved T
	found := false
	for _, it := range items {
		if it.EntityID() == id {
			moved = it
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("engine.Move: item %s: %w", id, domain.ErrNotFound)
	}

	newPos = clamp(newPos, 1, len(items))
	oldPos := moved.GetPosition()
	if newPos == oldPos {
		return nil
	}

	for _, it := range items {
		p := it.GetPosition()
		switch {
		case newPos > oldPos && p > oldPos && p <= newPos:
			it.SetPosition(p - 1)
		case newPos < oldPos && p >= newPos && p < oldPos:
			it.SetPosition(p + 1)
		}
	}
	moved.SetPosition(newPos)
	return nil
}

// MoveAcross transfers one item from source to target: the gap in source
// closes, a slot in target opens at newPos (clamped to [1, len(target)+1]).
// Returns the updated source and target slices.
func MoveAcross[T Positioned](source, target []T, id uuid.UUID, newPos int) ([]T, []T, error) {
	idx := -1
	for i, it := range source {
		if it.EntityID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return source, target, fmt.Errorf("engine.MoveAcross: item %s: %w", id, domain.ErrNotFound)
	}

	moved := source[idx]
	oldPos := moved.GetPosition()

	source = append(source[:idx], source[idx+1:]...)
	for _, it := range source {
		if it.GetPosition() > oldPos {
			it.SetPosition(it.GetPosition() - 1)
		}
	}

	newPos = clamp(newPos, 1, len(target)+1)
	for _, it := range target {
		if it.GetPosition() >= newPos {
			it.SetPosition(it.GetPosition() + 1)
		}
	}
	moved.SetPosition(newPos)
	target = append(target, moved)

	return source, target, nil
}

// Remove deletes one sibling and closes the gap it leaves. Removing an
// unknown id returns ErrNotFound.
func Remove[T Positioned](items []T, id uuid.UUID) ([]T, error) {
	idx := -1
	for i, it := range items {
		if it.EntityID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return items, fmt.Errorf("engine.Remove: item %s: %w", id, domain.ErrNotFound)
	}

	removedPos := items[idx].GetPosition()
	items = append(items[:idx], items[idx+1:]...)
	for _, it := range items {
		if it.GetPosition() > removedPos {
			it.SetPosition(it.GetPosition() - 1)
		}
	}
	return items, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
