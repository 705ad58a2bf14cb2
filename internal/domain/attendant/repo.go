package attendant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the attendant does not exist.
	ErrNotFound = errors.New("attendant not found")
	// ErrDuplicateEmail indicates another attendant already uses the email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// Repository provides access to attendant records.
type Repository interface {
	Create(ctx context.Context, a *Attendant) error
	GetByID(ctx context.Context, id uuid.UUID) (*Attendant, error)
	GetByEmail(ctx context.Context, email string) (*Attendant, error)
	Update(ctx context.Context, a *Attendant) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Attendant, int, error)
}
