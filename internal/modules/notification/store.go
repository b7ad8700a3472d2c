package notification

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"royaltaxi/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Record appends one notification row.
func (s *Store) Record(ctx context.Context, userID types.ID, title, body string, category Category) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO notifications (user_id, title, body, category, created_at)
		VALUES ($1, $2, $3, $4, NOW())`,
		string(userID), title, body, string(category),
	)
	return err
}

// RecordBatch appends one row per recipient inside a single round trip batch.
func (s *Store) RecordBatch(ctx context.Context, userIDs []types.ID, title, body string, category Category) error {
	if len(userIDs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, id := range userIDs {
		batch.Queue(`
			INSERT INTO notifications (user_id, title, body, category, created_at)
			VALUES ($1, $2, $3, $4, NOW())`,
			string(id), title, body, string(category),
		)
	}
	br := s.db.SendBatch(ctx, batch)
	defer br.Close()
	for range userIDs {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByUser returns the newest notifications first.
func (s *Store) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, `
		SELECT id, user_id, title, body, category, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, string(userID), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Category, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
