package patient

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/platform/webhook"
	"github.com/connectsaude/connect/internal/platform/websocket"
)

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	for _, existing := range m.patients {
		if existing.Phone == p.Phone {
			return ErrDuplicatePhone
		}
	}
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockRepo) GetByPhone(_ context.Context, phone string) (*Patient, error) {
	for _, p := range m.patients {
		if p.Phone == phone {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepo) Update(_ context.Context, p *Patient, expectedVersion int) error {
	stored, ok := m.patients[p.ID]
	if !ok {
		return ErrNotFound
	}
	if stored.Version != expectedVersion {
		return ErrVersionConflict
	}
	cp := *p
	cp.Version = expectedVersion + 1
	m.patients[p.ID] = &cp
	p.Version = cp.Version
	return nil
}

func (m *mockRepo) UpdatePreview(_ context.Context, id uuid.UUID, preview string) error {
	p, ok := m.patients[id]
	if !ok {
		return ErrNotFound
	}
	p.LastMessage = &preview
	return nil
}

func (m *mockRepo) List(_ context.Context, filter ListFilter) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.SectorID != nil && (p.SectorID == nil || *p.SectorID != *filter.SectorID) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) ListQueued(_ context.Context) ([]*Patient, error) {
	var out []*Patient
	for _, p := range m.patients {
		if p.Status == StatusQueued {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []websocket.Event
}

func (c *capturingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *capturingPublisher) byType(eventType string) []websocket.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []websocket.Event
	for _, ev := range c.events {
		if ev.Type == eventType {
			out = append(out, ev)
		}
	}
	return out
}

type capturingHooks struct {
	mu     sync.Mutex
	events []webhook.Event
}

func (c *capturingHooks) PublishAsync(ev webhook.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *capturingHooks) eventNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, ev := range c.events {
		out = append(out, ev.Evento)
	}
	return out
}

func newTestService(repo Repository) (*Service, *capturingPublisher, *capturingHooks) {
	ws := &capturingPublisher{}
	hooks := &capturingHooks{}
	svc := NewService(repo, ws, hooks, 30*time.Minute, zerolog.Nop())
	return svc, ws, hooks
}

func TestCreatePatient(t *testing.T) {
	svc, ws, hooks := newTestService(newMockRepo())

	p, err := svc.Create(context.Background(), CreateInput{Name: "Ana", Phone: "+5511999990000"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if p.Status != StatusQueued {
		t.Errorf("new patient should enter the queue, got %q", p.Status)
	}
	if p.QueueEnteredAt == nil {
		t.Error("queue_entered_at should be set on creation")
	}
	if p.Version != 1 {
		t.Errorf("expected version 1, got %d", p.Version)
	}

	if got := ws.byType("patient.created"); len(got) != 2 {
		t.Errorf("expected queue + patients realtime events, got %d", len(got))
	}
	names := hooks.eventNames()
	if len(names) != 1 || names[0] != webhook.EventPatientCreated {
		t.Errorf("expected %s webhook, got %v", webhook.EventPatientCreated, names)
	}
}

func TestCreatePatient_Validation(t *testing.T) {
	svc, _, _ := newTestService(newMockRepo())

	if _, err := svc.Create(context.Background(), CreateInput{Phone: "123"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing name, got %v", err)
	}
	if _, err := svc.Create(context.Background(), CreateInput{Name: "Ana"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing phone, got %v", err)
	}
}

func TestCreatePatient_DuplicatePhone(t *testing.T) {
	svc, _, _ := newTestService(newMockRepo())

	in := CreateInput{Name: "Ana", Phone: "+5511999990000"}
	if _, err := svc.Create(context.Background(), in); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	if _, err := svc.Create(context.Background(), in); !errors.Is(err, ErrDuplicatePhone) {
		t.Fatalf("expected ErrDuplicatePhone, got %v", err)
	}
}

func TestChangeStatus_Lifecycle(t *testing.T) {
	svc, _, hooks := newTestService(newMockRepo())

	p, err := svc.Create(context.Background(), CreateInput{Name: "Bruno", Phone: "+5511888880000"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	attendantID := uuid.New()
	p, err = svc.ChangeStatus(context.Background(), p.ID, StatusInService, p.Version, &attendantID)
	if err != nil {
		t.Fatalf("fila -> em_atendimento failed: %v", err)
	}
	if p.AttendantID == nil || *p.AttendantID != attendantID {
		t.Error("entering service should assign the attendant")
	}
	if p.Version != 2 {
		t.Errorf("expected version bump to 2, got %d", p.Version)
	}

	p, err = svc.ChangeStatus(context.Background(), p.ID, StatusFinished, p.Version, nil)
	if err != nil {
		t.Fatalf("em_atendimento -> finalizado failed: %v", err)
	}
	if p.QueueEnteredAt != nil {
		t.Error("finishing should clear the queue slot")
	}

	names := hooks.eventNames()
	want := map[string]bool{}
	for _, n := range names {
		want[n] = true
	}
	if !want[webhook.EventPatientStatusMoved] {
		t.Errorf("expected %s webhook, got %v", webhook.EventPatientStatusMoved, names)
	}
}

func TestChangeStatus_ReturnToQueue(t *testing.T) {
	svc, _, _ := newTestService(newMockRepo())

	p, _ := svc.Create(context.Background(), CreateInput{Name: "Carla", Phone: "+5511777770000"})
	attendantID := uuid.New()
	p, err := svc.ChangeStatus(context.Background(), p.ID, StatusInService, p.Version, &attendantID)
	if err != nil {
		t.Fatalf("enter service failed: %v", err)
	}

	p, err = svc.ChangeStatus(context.Background(), p.ID, StatusQueued, p.Version, nil)
	if err != nil {
		t.Fatalf("em_atendimento -> fila failed: %v", err)
	}
	if p.AttendantID != nil {
		t.Error("returning to the queue should release the attendant")
	}
	if p.QueueEnteredAt == nil {
		t.Error("returning to the queue should restart the wait clock")
	}
}

func TestChangeStatus_InvalidTransitions(t *testing.T) {
	svc, _, _ := newTestService(newMockRepo())

	p, _ := svc.Create(context.Background(), CreateInput{Name: "Davi", Phone: "+5511666660000"})

	// fila -> finalizado skips service.
	if _, err := svc.ChangeStatus(context.Background(), p.ID, StatusFinished, p.Version, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}

	attendantID := uuid.New()
	p, _ = svc.ChangeStatus(context.Background(), p.ID, StatusInService, p.Version, &attendantID)
	p, _ = svc.ChangeStatus(context.Background(), p.ID, StatusFinished, p.Version, nil)

	// Finished patients cannot move again.
	if _, err := svc.ChangeStatus(context.Background(), p.ID, StatusQueued, p.Version, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition from finalizado, got %v", err)
	}
}

func TestChangeStatus_StaleVersion(t *testing.T) {
	svc, _, _ := newTestService(newMockRepo())

	p, _ := svc.Create(context.Background(), CreateInput{Name: "Eva", Phone: "+5511555550000"})
	attendantID := uuid.New()
	if _, err := svc.ChangeStatus(context.Background(), p.ID, StatusInService, p.Version, &attendantID); err != nil {
		t.Fatalf("enter service failed: %v", err)
	}

	// Replay with the pre-update version.
	if _, err := svc.ChangeStatus(context.Background(), p.ID, StatusQueued, p.Version+1, nil); err != nil {
		t.Fatalf("valid CAS update failed: %v", err)
	}
	stale, err := svc.Get(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if _, err := svc.ChangeStatus(context.Background(), p.ID, StatusInService, stale.Version-1, &attendantID); !errors.Is(err, ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict, got %v", err)
	}
}

func TestUpdateContact(t *testing.T) {
	svc, _, hooks := newTestService(newMockRepo())

	p, _ := svc.Create(context.Background(), CreateInput{Name: "Fabio", Phone: "+5511444440000"})
	email := "fabio@example.com"
	updated, err := svc.UpdateContact(context.Background(), p.ID, UpdateContactInput{Email: &email, Version: p.Version})
	if err != nil {
		t.Fatalf("UpdateContact failed: %v", err)
	}
	if updated.Email == nil || *updated.Email != email {
		t.Errorf("expected email set, got %v", updated.Email)
	}

	names := hooks.eventNames()
	if names[len(names)-1] != webhook.EventPatientUpdated {
		t.Errorf("expected %s webhook, got %v", webhook.EventPatientUpdated, names)
	}
}

func TestTransfer(t *testing.T) {
	svc, _, _ := newTestService(newMockRepo())

	p, _ := svc.Create(context.Background(), CreateInput{Name: "Gina", Phone: "+5511333330000"})
	sectorID := uuid.New()
	attendantID := uuid.New()

	updated, err := svc.Transfer(context.Background(), p.ID, TransferInput{
		SectorID:    sectorID,
		AttendantID: &attendantID,
		Version:     p.Version,
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if updated.SectorID == nil || *updated.SectorID != sectorID {
		t.Error("sector was not updated")
	}
	if updated.AttendantID == nil || *updated.AttendantID != attendantID {
		t.Error("attendant was not updated")
	}

	if _, err := svc.Transfer(context.Background(), p.ID, TransferInput{Version: updated.Version}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput for missing sector, got %v", err)
	}
}

func TestQueue_UsesThreshold(t *testing.T) {
	repo := newMockRepo()
	svc, _, _ := newTestService(repo)

	p, _ := svc.Create(context.Background(), CreateInput{Name: "Hugo", Phone: "+5511222220000"})
	entered := time.Now().UTC().Add(-45 * time.Minute)
	repo.patients[p.ID].QueueEnteredAt = &entered

	entries, err := svc.Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if !entries[0].Alert {
		t.Error("45 minute wait should alert at a 30 minute threshold")
	}
}
