package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates the notification does not exist.
var ErrNotFound = errors.New("notification not found")

// Repository provides access to notification records.
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id uuid.UUID) (*Notification, error)
	// ListByAttendant returns the attendant's notifications newest first,
	// capped at maxAge days back.
	ListByAttendant(ctx context.Context, attendantID uuid.UUID, maxAgeDays int) ([]*Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID) error
	MarkAllRead(ctx context.Context, attendantID uuid.UUID) error
}
