package patient

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the patient does not exist.
	ErrNotFound = errors.New("patient not found")
	// ErrDuplicatePhone indicates another patient already uses the phone.
	ErrDuplicatePhone = errors.New("phone already registered")
	// ErrVersionConflict indicates the caller acted on a stale version.
	ErrVersionConflict = errors.New("patient was modified concurrently")
)

// ListFilter narrows patient listings.
type ListFilter struct {
	Status   string
	SectorID *uuid.UUID
	Limit    int
	Offset   int
}

// Repository provides access to patient records.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByPhone(ctx context.Context, phone string) (*Patient, error)
	// Update persists p if the stored version still equals expectedVersion,
	// bumping p.Version by one. A stale version yields ErrVersionConflict.
	Update(ctx context.Context, p *Patient, expectedVersion int) error
	// UpdatePreview sets the last-message preview without touching version.
	UpdatePreview(ctx context.Context, id uuid.UUID, preview string) error
	List(ctx context.Context, filter ListFilter) ([]*Patient, int, error)
	// ListQueued returns every patient currently in the queue.
	ListQueued(ctx context.Context) ([]*Patient, error)
}
