package sector

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound indicates the sector does not exist.
var ErrNotFound = errors.New("sector not found")

type Repository interface {
	Create(ctx context.Context, s *Sector) error
	GetByID(ctx context.Context, id uuid.UUID) (*Sector, error)
	Update(ctx context.Context, s *Sector) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, limit, offset int) ([]*Sector, int, error)
}
