package attendant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidInput indicates the request payload failed validation.
	ErrInvalidInput = errors.New("invalid attendant input")
	// ErrInvalidCredentials indicates the email or password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const minPasswordLength = 8

// Service implements attendant business rules on top of a Repository.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// CreateInput carries the fields accepted when registering an attendant.
type CreateInput struct {
	Name     string     `json:"name"`
	Email    string     `json:"email"`
	Password string     `json:"password"`
	Role     string     `json:"role"`
	SectorID *uuid.UUID `json:"sector_id"`
}

// UpdateInput carries the mutable fields of an attendant. Nil pointers
// leave the current value untouched.
type UpdateInput struct {
	Name     *string    `json:"name"`
	Email    *string    `json:"email"`
	Password *string    `json:"password"`
	Role     *string    `json:"role"`
	SectorID *uuid.UUID `json:"sector_id"`
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*Attendant, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case email == "" || !strings.Contains(email, "@"):
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	case len(in.Password) < minPasswordLength:
		return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	role := in.Role
	if role == "" {
		role = RoleAttendant
	}
	if !ValidRole(role) {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	a := &Attendant{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		SectorID:     in.SectorID,
		Status:       StatusOffline,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Authenticate verifies email and password and returns the matching
// attendant. The attendant is marked online on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Attendant, error) {
	a, err := s.repo.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	if err := s.repo.UpdateStatus(ctx, a.ID, StatusOnline); err == nil {
		a.Status = StatusOnline
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Attendant, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Attendant, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		a.Name = name
	}
	if in.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*in.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
		}
		a.Email = email
	}
	if in.Password != nil {
		if len(*in.Password) < minPasswordLength {
			return nil, fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(*in.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		a.PasswordHash = string(hash)
	}
	if in.Role != nil {
		if !ValidRole(*in.Role) {
			return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *in.Role)
		}
		a.Role = *in.Role
	}
	if in.SectorID != nil {
		a.SectorID = in.SectorID
	}
	a.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetStatus updates an attendant's presence state.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.repo.UpdateStatus(ctx, id, status)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Attendant, int, error) {
	return s.repo.List(ctx, limit, offset)
}
