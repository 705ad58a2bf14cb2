package sector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidInput indicates the request payload failed validation.
var ErrInvalidInput = errors.New("invalid sector input")

// Service implements sector business rules on top of a Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields accepted when creating a sector.
type CreateInput struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// UpdateInput carries the mutable fields of a sector. Nil pointers
// leave the current value untouched.
type UpdateInput struct {
	Name   *string `json:"name"`
	Color  *string `json:"color"`
	Active *bool   `json:"active"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Sector, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	sec := &Sector{
		ID:        uuid.New(),
		Name:      name,
		Color:     strings.TrimSpace(in.Color),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Sector, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Sector, error) {
	sec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		sec.Name = name
	}
	if in.Color != nil {
		sec.Color = strings.TrimSpace(*in.Color)
	}
	if in.Active != nil {
		sec.Active = *in.Active
	}
	sec.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, sec); err != nil {
		return nil, err
	}
	return sec, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Sector, int, error) {
	return s.repo.List(ctx, limit, offset)
}
