package engine

import (
	"sort"

	"github.com/gosuda/flowboard/internal/domain"
)

// Progression describes the outcome of a stage evaluation after a
// completion event.
type Progression struct {
	Advanced  bool
	FromStage int
	ToStage   int
	Completed bool // card reached (or already sat in) the terminal stage with everything done
}

// StageLists filters a board's lists down to the ordered, non-archived
// stage sequence a card advances through. Custom lists are not stages.
func StageLists(lists []*domain.List) []*domain.List {
	stages := make([]*domain.List, 0, len(lists))
	for _, l := range lists {
		if l.IsArchived || l.Type == domain.ListTypeCustom {
			continue
		}
		stages = append(stages, l)
	}
	sort.Slice(stages, func(i, j int) bool { return stages[i].Position < stages[j].Position })
	return stages
}

// EvaluateStage decides whether a card should advance after a task or
// checklist completion. A card is eligible only when it holds at least one
// task and every task and checklist item is complete; an empty card never
// advances. Eligible cards move one stage forward, or are marked completed
// when already in the terminal stage. The returned list is the stage to
// move into, nil when no move happens.
//
// Progression is one-way: un-completing a task later never calls back in
// here to regress the card.
func EvaluateStage(card *domain.Card, stages []*domain.List) (Progression, *domain.List) {
	cur := -1
	for i, s := range stages {
		if s.ID == card.ListID {
			cur = i
			break
		}
	}

	prog := Progression{FromStage: cur, ToStage: cur}
	if cur < 0 {
		// Card sits in a custom or archived list; stage progression does
		// not apply there.
		return prog, nil
	}

	if !allWorkDone(card) {
		return prog, nil
	}

	if cur == len(stages)-1 {
		prog.Completed = true
		card.IsCompleted = true
		return prog, nil
	}

	next := stages[cur+1]
	prog.Advanced = true
	prog.ToStage = cur + 1
	return prog, next
}

func allWorkDone(card *domain.Card) bool {
	if len(card.Tasks) == 0 {
		return false
	}
	for _, t := range card.Tasks {
		if !t.Completed {
			return false
		}
	}
	for _, item := range card.Checklist {
		if !item.Completed {
			return false
		}
	}
	return true
}
