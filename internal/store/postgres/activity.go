package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gosuda/flowboard/internal/domain"
)

type ActivityRepo struct {
	pool *pgxpool.Pool
}

func NewActivityRepo(pool *pgxpool.Pool) *ActivityRepo {
	return &ActivityRepo{pool: pool}
}

func (r *ActivityRepo) Record(ctx context.Context, entry *domain.ActivityEntry) error {
	meta, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("activityRepo.Record: marshal metadata: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO activity_log (id, type, actor_id, board_id, list_id, card_id, task_id, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		entry.ID, entry.Type, entry.ActorID,
		entry.Refs.BoardID, entry.Refs.ListID, entry.Refs.CardID, entry.Refs.TaskID,
		meta, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("activityRepo.Record: %w", err)
	}

	return nil
}

func (r *ActivityRepo) ListByBoard(ctx context.Context, boardID uuid.UUID, limit, offset int) ([]*domain.ActivityEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, actor_id, board_id, list_id, card_id, task_id, metadata, created_at
		 FROM activity_log WHERE board_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		boardID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("activityRepo.ListByBoard: %w", err)
	}
	defer rows.Close()

	return scanActivityEntries(rows, "activityRepo.ListByBoard")
}

func (r *ActivityRepo) ListByCard(ctx context.Context, cardID uuid.UUID) ([]*domain.ActivityEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, actor_id, board_id, list_id, card_id, task_id, metadata, created_at
		 FROM activity_log WHERE card_id = $1
		 ORDER BY created_at DESC
		 LIMIT 500`,
		cardID,
	)
	if err != nil {
		return nil, fmt.Errorf("activityRepo.ListByCard: %w", err)
	}
	defer rows.Close()

	return scanActivityEntries(rows, "activityRepo.ListByCard")
}

func scanActivityEntries(rows pgx.Rows, caller string) ([]*domain.ActivityEntry, error) {
	var entries []*domain.ActivityEntry
	for rows.Next() {
		var (
			e    domain.ActivityEntry
			meta []byte
		)
		if err := rows.Scan(
			&e.ID, &e.Type, &e.ActorID,
			&e.Refs.BoardID, &e.Refs.ListID, &e.Refs.CardID, &e.Refs.TaskID,
			&meta, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%s: scan: %w", caller, err)
		}
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("%s: unmarshal metadata: %w", caller, err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: rows: %w", caller, err)
	}

	return entries, nil
}
