package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/flowboard/internal/domain"
)

type ListRepo struct {
	pool *pgxpool.Pool
}

func NewListRepo(pool *pgxpool.Pool) *ListRepo {
	return &ListRepo{pool: pool}
}

func (r *ListRepo) Create(ctx context.Context, l *domain.List) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO lists (id, board_id, title, position, list_type, is_archived, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		l.ID, l.BoardID, l.Title, l.Position, l.Type, l.IsArchived, l.Version, l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("listRepo.Create: %w", err)
	}

	return nil
}

func (r *ListRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.List, error) {
	var l domain.List

	err := r.pool.QueryRow(ctx,
		`SELECT id, board_id, title, position, list_type, is_archived, version, created_at, updated_at
		 FROM lists WHERE id = $1`,
		id,
	).Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.Type, &l.IsArchived, &l.Version, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("listRepo.GetByID: %w", domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("listRepo.GetByID: %w", err)
	}

	return &l, nil
}

func (r *ListRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*domain.List, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, board_id, title, position, list_type, is_archived, version, created_at, updated_at
		 FROM lists WHERE board_id = $1
		 ORDER BY position`,
		boardID,
	)
	if err != nil {
		return nil, fmt.Errorf("listRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	var lists []*domain.List
	for rows.Next() {
		var l domain.List
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &l.Type, &l.IsArchived, &l.Version, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("listRepo.ListByBoard: scan: %w", err)
		}
		lists = append(lists, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listRepo.ListByBoard: rows: %w", err)
	}

	return lists, nil
}

func (r *ListRepo) Save(ctx context.Context, l *domain.List) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE lists SET title = $1, position = $2, list_type = $3, is_archived = $4,
		        version = version + 1, updated_at = $5
		 WHERE id = $6 AND version = $7`,
		l.Title, l.Position, l.Type, l.IsArchived, l.UpdatedAt, l.ID, l.Version,
	)
	if err != nil {
		return fmt.Errorf("listRepo.Save: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM lists WHERE id = $1)`, l.ID).Scan(&exists); err != nil {
			return fmt.Errorf("listRepo.Save: %w", err)
		}
		if !exists {
			return fmt.Errorf("listRepo.Save: %w", domain.ErrNotFound)
		}
		return fmt.Errorf("listRepo.Save: %w", domain.ErrConflict)
	}

	l.Version++
	return nil
}

func (r *ListRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lists WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("listRepo.Delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("listRepo.Delete: %w", domain.ErrNotFound)
	}

	return nil
}
