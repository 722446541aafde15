package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/flowboard/internal/domain"
)

// CardRepo persists the card aggregate as a single row: tasks (with their
// subtasks), checklist and members ride along as JSONB so the whole
// aggregate is written through one versioned update.
type CardRepo struct {
	pool *pgxpool.Pool
}

func NewCardRepo(pool *pgxpool.Pool) *CardRepo {
	return &CardRepo{pool: pool}
}

func (r *CardRepo) Create(ctx context.Context, c *domain.Card) error {
	tasks, checklist, members, err := marshalCardEmbeds(c)
	if err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO cards (id, list_id, position, title, description, priority, tasks, checklist, members, is_completed, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		c.ID, c.ListID, c.Position, c.Title, c.Description, c.Priority,
		tasks, checklist, members, c.IsCompleted, c.Version, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Create: %w", err)
	}

	return nil
}

func (r *CardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Card, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, list_id, position, title, description, priority, tasks, checklist, members, is_completed, version, created_at, updated_at
		 FROM cards WHERE id = $1`,
		id,
	)

	c, err := scanCard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("cardRepo.GetByID: %w", err)
	}

	return c, nil
}

func (r *CardRepo) ListByList(ctx context.Context, listID uuid.UUID) ([]*domain.Card, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, list_id, position, title, description, priority, tasks, checklist, members, is_completed, version, created_at, updated_at
		 FROM cards WHERE list_id = $1
		 ORDER BY position
		 LIMIT 1000`,
		listID,
	)
	if err != nil {
		return nil, fmt.Errorf("cardRepo.ListByList: %w", err)
	}
	defer rows.Close()

	var cards []*domain.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("cardRepo.ListByList: %w", err)
		}
		cards = append(cards, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cardRepo.ListByList: rows: %w", err)
	}

	return cards, nil
}

// Save writes the aggregate guarded by its version; the optimistic check
// serializes concurrent writers on the same card.
func (r *CardRepo) Save(ctx context.Context, c *domain.Card) error {
	tasks, checklist, members, err := marshalCardEmbeds(c)
	if err != nil {
		return fmt.Errorf("cardRepo.Save: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE cards SET list_id = $1, position = $2, title = $3, description = $4, priority = $5,
		        tasks = $6, checklist = $7, members = $8, is_completed = $9,
		        version = version + 1, updated_at = $10
		 WHERE id = $11 AND version = $12`,
		c.ListID, c.Position, c.Title, c.Description, c.Priority,
		tasks, checklist, members, c.IsCompleted, c.UpdatedAt, c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("cardRepo.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM cards WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return fmt.Errorf("cardRepo.Save: %w", err)
		}
		if !exists {
			return fmt.Errorf("cardRepo.Save: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("cardRepo.Save: %w", domain.ErrConflict)
	}

	c.Version++
	return nil
}

func (r *CardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM cards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("cardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("cardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

func marshalCardEmbeds(c *domain.Card) (tasks, checklist, members []byte, err error) {
	tasks, err = json.Marshal(c.Tasks)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal tasks: %w", err)
	}
	checklist, err = json.Marshal(c.Checklist)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal checklist: %w", err)
	}
	members, err = json.Marshal(c.Members)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal members: %w", err)
	}
	return tasks, checklist, members, nil
}

func scanCard(row pgx.Row) (*domain.Card, error) {
	var (
		c         domain.Card
		tasks     []byte
		checklist []byte
		members   []byte
	)

	err := row.Scan(
		&c.ID, &c.ListID, &c.Position, &c.Title, &c.Description, &c.Priority,
		&tasks, &checklist, &members, &c.IsCompleted, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tasks, &c.Tasks); err != nil {
		return nil, fmt.Errorf("unmarshal tasks: %w", err)
	}
	if c.Tasks == nil {
		c.Tasks = map[uuid.UUID]*domain.Task{}
	}
	if err := json.Unmarshal(checklist, &c.Checklist); err != nil {
		return nil, fmt.Errorf("unmarshal checklist: %w", err)
	}
	if err := json.Unmarshal(members, &c.Members); err != nil {
		return nil, fmt.Errorf("unmarshal members: %w", err)
	}

	return &c, nil
}
