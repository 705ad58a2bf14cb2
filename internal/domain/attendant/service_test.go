package attendant

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type mockRepo struct {
	attendants map[uuid.UUID]*Attendant
}

func newMockRepo() *mockRepo {
	return &mockRepo{attendants: make(map[uuid.UUID]*Attendant)}
}

func (m *mockRepo) Create(_ context.Context, a *Attendant) error {
	for _, existing := range m.attendants {
		if existing.Email == a.Email {
			return ErrDuplicateEmail
		}
	}
	cp := *a
	m.attendants[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Attendant, error) {
	a, ok := m.attendants[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) GetByEmail(_ context.Context, email string) (*Attendant, error) {
	for _, a := range m.attendants {
		if a.Email == strings.ToLower(email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, a *Attendant) error {
	if _, ok := m.attendants[a.ID]; !ok {
		return ErrNotFound
	}
	cp := *a
	m.attendants[a.ID] = &cp
	return nil
}

func (m *mockRepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	a, ok := m.attendants[id]
	if !ok {
		return ErrNotFound
	}
	a.Status = status
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.attendants[id]; !ok {
		return ErrNotFound
	}
	delete(m.attendants, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Attendant, int, error) {
	var all []*Attendant
	for _, a := range m.attendants {
		cp := *a
		all = append(all, &cp)
	}
	total := len(all)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func TestCreateAttendant(t *testing.T) {
	svc := NewService(newMockRepo())

	a, err := svc.Create(context.Background(), CreateInput{
		Name:     "Maria Souza",
		Email:    "Maria@Connect.Example",
		Password: "s3cret-pass",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a.Email != "maria@connect.example" {
		t.Errorf("expected lowercased email, got %q", a.Email)
	}
	if a.Role != RoleAttendant {
		t.Errorf("expected default role attendant, got %q", a.Role)
	}
	if a.Status != StatusOffline {
		t.Errorf("new attendant should start offline, got %q", a.Status)
	}
	if a.PasswordHash == "s3cret-pass" {
		t.Error("password must not be stored in clear")
	}
	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte("s3cret-pass")) != nil {
		t.Error("stored hash does not match the password")
	}
}

func TestCreateAttendant_Validation(t *testing.T) {
	svc := NewService(newMockRepo())

	cases := []struct {
		name string
		in   CreateInput
	}{
		{"empty name", CreateInput{Email: "a@b.c", Password: "longenough"}},
		{"bad email", CreateInput{Name: "A", Email: "not-an-email", Password: "longenough"}},
		{"short password", CreateInput{Name: "A", Email: "a@b.c", Password: "short"}},
		{"bad role", CreateInput{Name: "A", Email: "a@b.c", Password: "longenough", Role: "boss"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestAuthenticate(t *testing.T) {
	svc := NewService(newMockRepo())

	if _, err := svc.Create(context.Background(), CreateInput{
		Name:     "Joana Lima",
		Email:    "joana@connect.example",
		Password: "correct-horse",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	a, err := svc.Authenticate(context.Background(), "joana@connect.example", "correct-horse")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if a.Status != StatusOnline {
		t.Errorf("expected attendant online after login, got %q", a.Status)
	}

	if _, err := svc.Authenticate(context.Background(), "joana@connect.example", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if _, err := svc.Authenticate(context.Background(), "nobody@connect.example", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown email, got %v", err)
	}
}

func TestSetStatus(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)

	a, err := svc.Create(context.Background(), CreateInput{
		Name:     "Pedro Alves",
		Email:    "pedro@connect.example",
		Password: "longenough",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.SetStatus(context.Background(), a.ID, StatusAway); err != nil {
		t.Fatalf("SetStatus failed: %v", err)
	}
	got, _ := svc.Get(context.Background(), a.ID)
	if got.Status != StatusAway {
		t.Errorf("expected status away, got %q", got.Status)
	}

	if err := svc.SetStatus(context.Background(), a.ID, "invisible"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown status, got %v", err)
	}
}

func TestCreateAttendant_DuplicateEmail(t *testing.T) {
	svc := NewService(newMockRepo())

	in := CreateInput{Name: "A", Email: "dup@connect.example", Password: "longenough"}
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestUpdateAttendant_PasswordRehash(t *testing.T) {
	svc := NewService(newMockRepo())

	a, err := svc.Create(context.Background(), CreateInput{
		Name:     "Rita Campos",
		Email:    "rita@connect.example",
		Password: "original-pass",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	newPass := "brand-new-pass"
	updated, err := svc.Update(context.Background(), a.ID, UpdateInput{Password: &newPass})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte(newPass)) != nil {
		t.Error("updated hash does not match the new password")
	}
	if _, err := svc.Authenticate(context.Background(), a.Email, "original-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password should no longer authenticate")
	}
}
