package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/wirechat-client/internal/store"
)

// Schema creates the status history table.
const Schema = `
CREATE TABLE IF NOT EXISTS status_updates (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	buddy_id     TEXT NOT NULL,
	display_name TEXT NOT NULL,
	status       INTEGER NOT NULL,
	recorded_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_status_updates_buddy ON status_updates(buddy_id, recorded_at DESC);
`

// SQLiteStore implements store.HistoryStore for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

var _ store.HistoryStore = (*SQLiteStore)(nil)

// New opens the SQLite database at dbPath and applies the schema.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(Schema)
		return err
	})
}

// NewWithSetup opens the database and runs setup before the first ping.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// AddStatusUpdate records a status change. Buddy ids must be UUIDs; they are
// stored in canonical form.
func (s *SQLiteStore) AddStatusUpdate(ctx context.Context, at time.Time, buddyID, displayName string, status int) error {
	id, err := uuid.Parse(buddyID)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", store.ErrInvalidBuddyID, buddyID, err)
	}

	query := `
		INSERT INTO status_updates (buddy_id, display_name, status, recorded_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, query, id.String(), displayName, status, at.UTC()); err != nil {
		return fmt.Errorf("insert status update: %w", err)
	}
	return nil
}

// ListStatusUpdates returns recorded updates, newest first.
func (s *SQLiteStore) ListStatusUpdates(ctx context.Context, buddyID string, limit int) ([]*store.StatusUpdate, error) {
	query := `
		SELECT id, buddy_id, display_name, status, recorded_at
		FROM status_updates
	`
	var args []any
	if buddyID != "" {
		id, err := uuid.Parse(buddyID)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", store.ErrInvalidBuddyID, buddyID, err)
		}
		query += ` WHERE buddy_id = ?`
		args = append(args, id.String())
	}
	query += ` ORDER BY recorded_at DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
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
