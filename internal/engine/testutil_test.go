package engine_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/gosuda/flowboard/internal/domain"
	"github.com/gosuda/flowboard/internal/engine"
)

// ---------------------------------------------------------------------------
// In-memory repositories with the same optimistic-version save semantics as
// the postgres store: reads hand out copies, saves compare versions.
// ---------------------------------------------------------------------------

type memBoards struct {
	mu     sync.Mutex
	boards map[uuid.UUID]*domain.Board
}

func newMemBoards() *memBoards {
	return &memBoards{boards: map[uuid.UUID]*domain.Board{}}
}

func cloneBoard(b *domain.Board) *domain.Board {
	cp := *b
	cp.Members = append([]domain.BoardMember(nil), b.Members...)
	return &cp
}

func (m *memBoards) Create(_ context.Context, b *domain.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.boards[b.ID] = cloneBoard(b)
	return nil
}

func (m *memBoards) GetByID(_ context.Context, id uuid.UUID) (*domain.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return nil, fmt.Errorf("board %s: %w", id, domain.ErrNotFound)
	}
	return cloneBoard(b), nil
}

func (m *memBoards) List(_ context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Board
	for _, b := range m.boards {
		if b.CreatedBy == userID {
			out = append(out, cloneBoard(b))
			continue
		}
		if _, ok := b.MemberRole(userID); ok {
			out = append(out, cloneBoard(b))
		}
	}
	return out, nil
}

func (m *memBoards) Save(_ context.Context, b *domain.Board) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.boards[b.ID]
	if !ok {
		return fmt.Errorf("board %s: %w", b.ID, domain.ErrNotFound)
	}
	if stored.Version != b.Version {
		return fmt.Errorf("board %s: %w", b.ID, domain.ErrConflict)
	}
	b.Version++
	m.boards[b.ID] = cloneBoard(b)
	return nil
}

func (m *memBoards) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return fmt.Errorf("board %s: %w", id, domain.ErrNotFound)
	}
	delete(m.boards, id)
	return nil
}

type memLists struct {
	mu    sync.Mutex
	lists map[uuid.UUID]*domain.List
}

func newMemLists() *memLists {
	return &memLists{lists: map[uuid.UUID]*domain.List{}}
}

func cloneList(l *domain.List) *domain.List {
	cp := *l
	return &cp
}

func (m *memLists) Create(_ context.Context, l *domain.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[l.ID] = cloneList(l)
	return nil
}

func (m *memLists) GetByID(_ context.Context, id uuid.UUID) (*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.lists[id]
	if !ok {
		return nil, fmt.Errorf("list %s: %w", id, domain.ErrNotFound)
	}
	return cloneList(l), nil
}

func (m *memLists) ListByBoard(_ context.Context, boardID uuid.UUID) ([]*domain.List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.List
	for _, l := range m.lists {
		if l.BoardID == boardID {
			out = append(out, cloneList(l))
		}
	}
	return out, nil
}

func (m *memLists) Save(_ context.Context, l *domain.List) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.lists[l.ID]
	if !ok {
		return fmt.Errorf("list %s: %w", l.ID, domain.ErrNotFound)
	}
	if stored.Version != l.Version {
		return fmt.Errorf("list %s: %w", l.ID, domain.ErrConflict)
	}
	l.Version++
	m.lists[l.ID] = cloneList(l)
	return nil
}

func (m *memLists) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.lists[id]; !ok {
		return fmt.Errorf("list %s: %w", id, domain.ErrNotFound)
	}
	delete(m.lists, id)
	return nil
}

type memCards struct {
	mu    sync.Mutex
	cards map[uuid.UUID]*domain.Card

	// saveHook, when set, runs before each save with the stored version.
	// Used to inject version conflicts.
	saveHook func(c *domain.Card) error
}

func newMemCards() *memCards {
	return &memCards{cards: map[uuid.UUID]*domain.Card{}}
}

func cloneCard(c *domain.Card) *domain.Card {
	cp := *c
	cp.Tasks = make(map[uuid.UUID]*domain.Task, len(c.Tasks))
	for id, t := range c.Tasks {
		tc := *t
		tc.AssignedTo = append([]uuid.UUID(nil), t.AssignedTo...)
		tc.AssignToOnUnlock = append([]uuid.UUID(nil), t.AssignToOnUnlock...)
		tc.Subtasks = make(map[uuid.UUID]*domain.Subtask, len(t.Subtasks))
		for sid, st := range t.Subtasks {
			sc := *st
			tc.Subtasks[sid] = &sc
		}
		cp.Tasks[id] = &tc
	}
	cp.Checklist = append([]domain.ChecklistItem(nil), c.Checklist...)
	cp.Members = append([]domain.CardMember(nil), c.Members...)
	return &cp
}

func (m *memCards) Create(_ context.Context, c *domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards[c.ID] = cloneCard(c)
	return nil
}

func (m *memCards) GetByID(_ context.Context, id uuid.UUID) (*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok {
		return nil, fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	return cloneCard(c), nil
}

func (m *memCards) ListByList(_ context.Context, listID uuid.UUID) ([]*domain.Card, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Card
	for _, c := range m.cards {
		if c.ListID == listID {
			out = append(out, cloneCard(c))
		}
	}
	return out, nil
}

func (m *memCards) Save(_ context.Context, c *domain.Card) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveHook != nil {
		if err := m.saveHook(c); err != nil {
			return err
		}
	}
	stored, ok := m.cards[c.ID]
	if !ok {
		return fmt.Errorf("card %s: %w", c.ID, domain.ErrNotFound)
	}
	if stored.Version != c.Version {
		return fmt.Errorf("card %s: %w", c.ID, domain.ErrConflict)
	}
	c.Version++
	m.cards[c.ID] = cloneCard(c)
	return nil
}

func (m *memCards) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[id]; !ok {
		return fmt.Errorf("card %s: %w", id, domain.ErrNotFound)
	}
	delete(m.cards, id)
	return nil
}

// ---------------------------------------------------------------------------
// Capture collaborators.
// ---------------------------------------------------------------------------

type captureActivity struct {
	mu      sync.Mutex
	entries []*domain.ActivityEntry
}

func (c *captureActivity) Record(_ context.Context, e *domain.ActivityEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, e)
	return nil
}

func (c *captureActivity) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.Type)
	}
	return out
}

type captureNotifier struct {
	mu          sync.Mutex
	assignments []engine.TaskAssignment
}

func (c *captureNotifier) NotifyAssignment(_ context.Context, a engine.TaskAssignment) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.assignments = append(c.assignments, a)
	return nil
}

type captureBroadcaster struct {
	mu     sync.Mutex
	events []engine.CardEvent
}

func (c *captureBroadcaster) BroadcastCardEvent(_ context.Context, evt engine.CardEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

// ---------------------------------------------------------------------------
// Fixture: a board with its default stages, one card, and an owner actor.
// ---------------------------------------------------------------------------

type fixture struct {
	svc      *engine.Service
	boards   *memBoards
	lists    *memLists
	cards    *memCards
	activity *captureActivity
	notifier *captureNotifier
	bcast    *captureBroadcaster

	owner  domain.ActorContext
	board  *domain.Board
	stages []*domain.List
	card   *domain.Card
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		boards:   newMemBoards(),
		lists:    newMemLists(),
		cards:    newMemCards(),
		activity: &captureActivity{},
		notifier: &captureNotifier{},
		bcast:    &captureBroadcaster{},
	}
	f.svc = engine.NewService(f.boards, f.lists, f.cards, f.activity, f.notifier, f.bcast)
	f.owner = domain.ActorContext{UserID: uuid.New(), GlobalRole: domain.GlobalRoleMember}

	ctx := context.Background()
	board, lists, err := f.svc.CreateBoard(ctx, f.owner, "Release train")
	if err != nil {
		t.Fatalf("create board: %v", err)
	}
	f.board = board
	f.stages = lists

	card, err := f.svc.CreateCard(ctx, f.owner, lists[0].ID, "Ship the feature", domain.CardPriorityMedium)
	if err != nil {
		t.Fatalf("create card: %v", err)
	}
	f.card = card

	return f
}

// reloadCard fetches the card's current stored state.
func (f *fixture) reloadCard(ctx context.Context) (*domain.Card, error) {
	return f.cards.GetByID(ctx, f.card.ID)
}

// addMember puts a user on the board with the given role.
func (f *fixture) addMember(ctx context.Context, userID uuid.UUID, role domain.BoardRole) error {
	b, err := f.boards.GetByID(ctx, f.board.ID)
	if err != nil {
		return err
	}
	b.Members = append(b.Members, domain.BoardMember{UserID: userID, Role: role})
	return f.boards.Save(ctx, b)
}
