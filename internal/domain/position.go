package domain

import "github.com/google/uuid"

// Position accessors shared by every sibling-ordered entity. The engine's
// ordered-collection helpers operate on any type exposing these three
// methods (lists in a board, cards in a list, tasks in a card, subtasks in
// a task).

func (l *List) EntityID() uuid.UUID { return l.ID }
func (l *List) GetPosition() int    { return l.Position }
func (l *List) SetPosition(p int)   { l.Position = p }

func (c *Card) EntityID() uuid.UUID { return c.ID }
func (c *Card) GetPosition() int    { return c.Position }
func (c *Card) SetPosition(p int)   { c.Position = p }

func (t *Task) EntityID() uuid.UUID { return t.ID }
func (t *Task) GetPosition() int    { return t.Position }
func (t *Task) SetPosition(p int)   { t.Position = p }

func (s *Subtask) EntityID() uuid.UUID { return s.ID }
func (s *Subtask) GetPosition() int    { return s.Position }
func (s *Subtask) SetPosition(p int)   { s.Position = p }
