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

type BoardRepo struct {
	pool *pgxpool.Pool
}

func NewBoardRepo(pool *pgxpool.Pool) *BoardRepo {
	return &BoardRepo{pool: pool}
}

func (r *BoardRepo) Create(ctx context.Context, b *domain.Board) error {
	members, err := json.Marshal(b.Members)
	if err != nil {
		return fmt.Errorf("boardRepo.Create: marshal members: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO boards (id, name, created_by, members, total_lists, total_cards, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.Name, b.CreatedBy, members, b.TotalLists, b.TotalCards, b.Version, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.Create: %w", err)
	}

	return nil
}

func (r *BoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Board, error) {
	var (
		b       domain.Board
		members []byte
	)

	err := r.pool.QueryRow(ctx,
		`SELECT id, name, created_by, members, total_lists, total_cards, version, created_at, updated_at
		 FROM boards WHERE id = $1`,
		id,
	).Scan(&b.ID, &b.Name, &b.CreatedBy, &members, &b.TotalLists, &b.TotalCards, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("boardRepo.GetByID: %w", err)
	}

	if err := json.Unmarshal(members, &b.Members); err != nil {
		return nil, fmt.Errorf("boardRepo.GetByID: unmarshal members: %w", err)
	}

	return &b, nil
}

func (r *BoardRepo) List(ctx context.Context, userID uuid.UUID) ([]*domain.Board, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, created_by, members, total_lists, total_cards, version, created_at, updated_at
		 FROM boards
		 WHERE created_by = $1 OR members @> $2
		 ORDER BY created_at
		 LIMIT 1000`,
		userID, fmt.Sprintf(`[{"UserID":%q}]`, userID),
	)
	if err != nil {
		return nil, fmt.Errorf("boardRepo.List: %w", err)
	}
	defer rows.Close()

	var boards []*domain.Board
	for rows.Next() {
		var (
			b       domain.Board
			members []byte
		)
		if err := rows.Scan(&b.ID, &b.Name, &b.CreatedBy, &members, &b.TotalLists, &b.TotalCards, &b.Version, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("boardRepo.List: scan: %w", err)
		}
		if err := json.Unmarshal(members, &b.Members); err != nil {
			return nil, fmt.Errorf("boardRepo.List: unmarshal members: %w", err)
		}
		boards = append(boards, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("boardRepo.List: rows: %w", err)
	}

	return boards, nil
}

// Save writes the board guarded by its version. A zero-row update means a
// concurrent writer won; the caller's retry guard distinguishes that from a
// deleted board.
func (r *BoardRepo) Save(ctx context.Context, b *domain.Board) error {
	members, err := json.Marshal(b.Members)
	if err != nil {
		return fmt.Errorf("boardRepo.Save: marshal members: %w", err)
	}

	tag, err := r.pool.Exec(ctx,
		`UPDATE boards SET name = $1, members = $2, total_lists = $3, total_cards = $4,
		        version = version + 1, updated_at = $5
		 WHERE id = $6 AND version = $7`,
		b.Name, members, b.TotalLists, b.TotalCards, b.UpdatedAt, b.ID, b.Version,
	)
	if err != nil {
		return fmt.Errorf("boardRepo.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return r.saveMiss(ctx, b.ID, "boardRepo.Save")
	}

	b.Version++
	return nil
}

func (r *BoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("boardRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("boardRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}

// saveMiss disambiguates a zero-row versioned update: the row either moved
// on (conflict) or is gone (not found).
func (r *BoardRepo) saveMiss(ctx context.Context, id uuid.UUID, caller string) error {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM boards WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", caller, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", caller, domain.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", caller, domain.ErrConflict)
}
