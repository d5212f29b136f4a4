package store

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidBuddyID is returned when a buddy id is not a UUID.
var ErrInvalidBuddyID = errors.New("invalid buddy id")

// StatusUpdate is one recorded status change of a buddy.
type StatusUpdate struct {
	ID          int64
	BuddyID     string
	DisplayName string
	Status      int
	RecordedAt  time.Time
}

// HistoryStore handles status history persistence.
type HistoryStore interface {
	// AddStatusUpdate records a status change observed at the given time.
	AddStatusUpdate(ctx context.Context, at time.Time, buddyID, displayName string, status int) error

	// ListStatusUpdates returns the newest updates of a buddy first.
	// An empty buddyID lists every buddy. Limit <= 0 means no limit.
	ListStatusUpdates(ctx context.Context, buddyID string, limit int) ([]*StatusUpdate, error)

	// Close closes the underlying database connection.
	Close() error
}
