package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/vovakirdan/wirechat-client/internal/store"
)

// Schema creates the status history table.
const Schema = `
CREATE TABLE IF NOT EXISTS status_updates (
	id           BIGSERIAL PRIMARY KEY,
	buddy_id     UUID NOT NULL,
	display_name TEXT NOT NULL,
	status       SMALLINT NOT NULL,
	recorded_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_status_updates_buddy ON status_updates(buddy_id, recorded_at DESC);
`

// PostgresStore implements store.HistoryStore for PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

var _ store.HistoryStore = (*PostgresStore)(nil)

// New connects to dsn and applies the schema.
func New(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// AddStatusUpdate records a status change. Buddy ids must be UUIDs.
func (s *PostgresStore) AddStatusUpdate(ctx context.Context, at time.Time, buddyID, displayName string, status int) error {
	id, err := uuid.Parse(buddyID)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", store.ErrInvalidBuddyID, buddyID, err)
	}

	query := `
		INSERT INTO status_updates (buddy_id, display_name, status, recorded_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := s.db.ExecContext(ctx, query, id.String(), displayName, status, at.UTC()); err != nil {
		return fmt.Errorf("insert status update: %w", err)
	}
	return nil
}

// ListStatusUpdates returns recorded updates, newest first.
func (s *PostgresStore) ListStatusUpdates(ctx context.Context, buddyID string, limit int) ([]*store.StatusUpdate, error) {
	query := `
		SELECT id, buddy_id::text, display_name, status, recorded_at
		FROM status_updates
	`
	var args []any
	if buddyID != "" {
		id, err := uuid.Parse(buddyID)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", store.ErrInvalidBuddyID, buddyID, err)
		}
		args = append(args, id.String())
		query += fmt.Sprintf(` WHERE buddy_id = $%d`, len(args))
	}
	query += ` ORDER BY recorded_at DESC, id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query status updates: %w", err)
	}
	defer rows.Close()

	var updates []*store.StatusUpdate
	for rows.Next() {
		var u store.StatusUpdate
		if err := rows.Scan(&u.ID, &u.BuddyID, &u.DisplayName, &u.Status, &u.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan status update: %w", err)
		}
		updates = append(updates, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status updates: %w", err)
	}

	return updates, nil
}
