package notification

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/domain/patient"
)

type mockQueue struct {
	patients []*patient.Patient
}

func (m *mockQueue) ListQueued(_ context.Context) ([]*patient.Patient, error) {
	return m.patients, nil
}

type mockRecipients struct {
	ids []uuid.UUID
}

func (m *mockRecipients) AlertRecipients(_ context.Context) ([]uuid.UUID, error) {
	return m.ids, nil
}

func waitingPatient(name string, waited time.Duration) *patient.Patient {
	entered := time.Now().UTC().Add(-waited)
	return &patient.Patient{
		ID:             uuid.New(),
		Name:           name,
		Phone:          name,
		Status:         patient.StatusQueued,
		QueueEnteredAt: &entered,
	}
}

func newTestAlerter(queue *mockQueue, recipients *mockRecipients) (*Alerter, *mockRepo, *capturingPublisher) {
	repo := newMockRepo()
	ws := &capturingPublisher{}
	notifier := NewService(repo, nil, zerolog.Nop())
	a := NewAlerter(queue, recipients, notifier, ws, 30*time.Minute, zerolog.Nop())
	return a, repo, ws
}

func TestAlerterNotifiesLongWaits(t *testing.T) {
	attendantID := uuid.New()
	queue := &mockQueue{patients: []*patient.Patient{
		waitingPatient("overdue", 45*time.Minute),
		waitingPatient("fresh", 5*time.Minute),
	}}
	a, repo, ws := newTestAlerter(queue, &mockRecipients{ids: []uuid.UUID{attendantID}})

	if err := a.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}

	if len(repo.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.notifications))
	}
	for _, n := range repo.notifications {
		if n.AttendantID != attendantID || n.Type != TypeQueueAlert {
			t.Errorf("unexpected notification %+v", n)
		}
	}

	if len(ws.events) != 1 || ws.events[0].Type != "queue.alert" {
		t.Errorf("expected a queue.alert broadcast, got %+v", ws.events)
	}
}

func TestAlerterAlertsOncePerStay(t *testing.T) {
	attendantID := uuid.New()
	overdue := waitingPatient("overdue", 45*time.Minute)
	queue := &mockQueue{patients: []*patient.Patient{overdue}}
	a, repo, _ := newTestAlerter(queue, &mockRecipients{ids: []uuid.UUID{attendantID}})

	a.Tick(context.Background())
	a.Tick(context.Background())
	if len(repo.notifications) != 1 {
		t.Fatalf("repeat ticks must not re-alert, got %d notifications", len(repo.notifications))
	}

	// Leaving and re-entering the queue arms the alert again.
	queue.patients = nil
	a.Tick(context.Background())
	queue.patients = []*patient.Patient{overdue}
	a.Tick(context.Background())

	if len(repo.notifications) != 2 {
		t.Fatalf("expected a second alert after re-entering, got %d", len(repo.notifications))
	}
}

func TestAlerterFansOutToAllRecipients(t *testing.T) {
	recipients := &mockRecipients{ids: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}}
	queue := &mockQueue{patients: []*patient.Patient{waitingPatient("overdue", 90*time.Minute)}}
	a, repo, _ := newTestAlerter(queue, recipients)

	if err := a.Tick(context.Background()); err != nil {
		t.Fatalf("Tick failed: %v", err)
	}
	if len(repo.notifications) != 3 {
		t.Fatalf("expected one notification per recipient, got %d", len(repo.notifications))
	}
}
