package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/domain/patient"
	"github.com/connectsaude/connect/internal/platform/websocket"
)

// QueueSource lists the patients currently waiting in the queue.
type QueueSource interface {
	ListQueued(ctx context.Context) ([]*patient.Patient, error)
}

// RecipientSource lists the attendants who should receive queue alerts.
type RecipientSource interface {
	AlertRecipients(ctx context.Context) ([]uuid.UUID, error)
}

// Alerter watches the queue and notifies attendants about patients
// waiting beyond the alert threshold. Each patient is alerted once per
// queue stay; re-entering the queue arms the alert again.
type Alerter struct {
	queue      QueueSource
	recipients RecipientSource
	notifier   *Service
	ws         websocket.Publisher
	threshold  time.Duration
	log        zerolog.Logger

	mu      sync.Mutex
	alerted map[uuid.UUID]struct{}
}

func NewAlerter(queue QueueSource, recipients RecipientSource, notifier *Service, ws websocket.Publisher, threshold time.Duration, log zerolog.Logger) *Alerter {
	return &Alerter{
		queue:      queue,
		recipients: recipients,
		notifier:   notifier,
		ws:         ws,
		threshold:  threshold,
		log:        log.With().Str("component", "queue_alerter").Logger(),
		alerted:    make(map[uuid.UUID]struct{}),
	}
}

// Run is the scheduler-facing tick wrapper.
func (a *Alerter) Run(ctx context.Context) {
	if err := a.Tick(ctx); err != nil {
		a.log.Error().Err(err).Msg("queue alert sweep failed")
	}
}

// Tick runs one alert sweep.
func (a *Alerter) Tick(ctx context.Context) error {
	queued, err := a.queue.ListQueued(ctx)
	if err != nil {
		return fmt.Errorf("listing queued patients: %w", err)
	}

	now := time.Now().UTC()
	thresholdMin := int(a.threshold.Minutes())

	a.mu.Lock()
	inQueue := make(map[uuid.UUID]struct{}, len(queued))
	var due []*patient.Patient
	for _, p := range queued {
		inQueue[p.ID] = struct{}{}
		if p.WaitMinutes(now) < thresholdMin {
			continue
		}
		if _, done := a.alerted[p.ID]; done {
			continue
		}
		a.alerted[p.ID] = struct{}{}
		due = append(due, p)
	}
	// Patients that left the queue may be alerted again on return.
	for id := range a.alerted {
		if _, still := inQueue[id]; !still {
			delete(a.alerted, id)
		}
	}
	a.mu.Unlock()

	for _, p := range due {
		a.alert(ctx, p, p.WaitMinutes(now))
	}
	return nil
}

func (a *Alerter) alert(ctx context.Context, p *patient.Patient, waitMinutes int) {
	recipients, err := a.recipients.AlertRecipients(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("failed to resolve alert recipients")
		return
	}

	title := "Paciente aguardando na fila"
	message := fmt.Sprintf("%s espera ha %d minutos", p.Name, waitMinutes)
	for _, attendantID := range recipients {
		if _, err := a.notifier.Notify(ctx, attendantID, TypeQueueAlert, title, message); err != nil {
			a.log.Error().Err(err).Stringer("attendant_id", attendantID).Msg("failed to create queue alert")
		}
	}

	if a.ws != nil {
		ev, err := websocket.NewEvent("queue.alert", websocket.TopicQueue, map[string]interface{}{
			"patient_id":   p.ID,
			"patient_name": p.Name,
			"wait_minutes": waitMinutes,
		})
		if err == nil {
			err = a.ws.Publish(ctx, ev)
		}
		if err != nil {
			a.log.Warn().Err(err).Msg("failed to broadcast queue alert")
		}
	}

	a.log.Info().
		Stringer("patient_id", p.ID).
		Int("wait_minutes", waitMinutes).
		Int("recipients", len(recipients)).
		Msg("queue alert sent")
}
