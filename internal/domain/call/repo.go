package call

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the call does not exist.
	ErrNotFound = errors.New("call not found")
	// ErrAlreadyCompleted indicates the call was completed before.
	ErrAlreadyCompleted = errors.New("call already completed")
)

// ListFilter narrows call listings. Zero values are ignored.
type ListFilter struct {
	AttendantID *uuid.UUID
	PatientID   *uuid.UUID
	Day         *time.Time
	Limit       int
	Offset      int
}

// Repository provides access to call records.
type Repository interface {
	Create(ctx context.Context, c *Call) error
	GetByID(ctx context.Context, id uuid.UUID) (*Call, error)
	Update(ctx context.Context, c *Call) error
	List(ctx context.Context, filter ListFilter) ([]*Call, int, error)
	// ListByDay returns every call started on the given day.
	ListByDay(ctx context.Context, day time.Time) ([]*Call, error)
}
