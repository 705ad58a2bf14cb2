package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/platform/webhook"
	"github.com/connectsaude/connect/internal/platform/websocket"
)

// ErrInvalidInput indicates the request payload failed validation.
var ErrInvalidInput = errors.New("invalid patient input")

// ErrInvalidTransition indicates a disallowed status change.
var ErrInvalidTransition = errors.New("invalid status transition")

// WebhookPublisher fans a domain event out to registered endpoints.
type WebhookPublisher interface {
	PublishAsync(event webhook.Event)
}

// Service implements patient business rules on top of a Repository.
// Mutations broadcast websocket events and fan out webhooks.
type Service struct {
	repo           Repository
	ws             websocket.Publisher
	hooks          WebhookPublisher
	alertThreshold time.Duration
	log            zerolog.Logger
}

func NewService(repo Repository, ws websocket.Publisher, hooks WebhookPublisher, alertThreshold time.Duration, log zerolog.Logger) *Service {
	return &Service{
		repo:           repo,
		ws:             ws,
		hooks:          hooks,
		alertThreshold: alertThreshold,
		log:            log.With().Str("component", "patient").Logger(),
	}
}

// CreateInput carries the fields accepted when registering a patient.
type CreateInput struct {
	Name     string     `json:"name"`
	Phone    string     `json:"phone"`
	CPF      *string    `json:"cpf"`
	Email    *string    `json:"email"`
	Unit     *string    `json:"unit"`
	SectorID *uuid.UUID `json:"sector_id"`
}

// UpdateContactInput carries the editable contact fields. Version is the
// caller's copy of the record version and must match the stored one.
type UpdateContactInput struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	CPF     *string `json:"cpf"`
	Email   *string `json:"email"`
	Unit    *string `json:"unit"`
	Version int     `json:"version"`
}

// TransferInput moves a patient to another sector and optionally assigns
// an attendant.
type TransferInput struct {
	SectorID    uuid.UUID  `json:"sector_id"`
	AttendantID *uuid.UUID `json:"attendant_id"`
	Version     int        `json:"version"`
}

// Create registers a new patient at the back of the queue.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Patient, error) {
	name := strings.TrimSpace(in.Name)
	phone := strings.TrimSpace(in.Phone)
	switch {
	case name == "":
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	case phone == "":
		return nil, fmt.Errorf("%w: phone is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	p := &Patient{
		ID:             uuid.New(),
		Name:           name,
		Phone:          phone,
		CPF:            in.CPF,
		Email:          in.Email,
		Unit:           in.Unit,
		SectorID:       in.SectorID,
		Status:         StatusQueued,
		QueueEnteredAt: &now,
		Version:        1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.broadcast(ctx, "patient.created", websocket.TopicQueue, p)
	s.broadcast(ctx, "patient.created", websocket.TopicPatients, p)
	s.fanOut(webhook.EventPatientCreated, p)
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Patient, int, error) {
	if filter.Status != "" && !ValidStatus(filter.Status) {
		return nil, 0, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, filter.Status)
	}
	return s.repo.List(ctx, filter)
}

// Queue returns the ordered waiting queue with per-row alert flags.
func (s *Service) Queue(ctx context.Context) ([]QueueEntry, error) {
	queued, err := s.repo.ListQueued(ctx)
	if err != nil {
		return nil, err
	}
	return OrderQueue(queued, s.alertThreshold, time.Now().UTC()), nil
}

// UpdateContact edits the patient's contact fields under version control.
func (s *Service) UpdateContact(ctx context.Context, id uuid.UUID, in UpdateContactInput) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrInvalidInput)
		}
		p.Name = name
	}
	if in.Phone != nil {
		phone := strings.TrimSpace(*in.Phone)
		if phone == "" {
			return nil, fmt.Errorf("%w: phone cannot be empty", ErrInvalidInput)
		}
		p.Phone = phone
	}
	if in.CPF != nil {
		p.CPF = in.CPF
	}
	if in.Email != nil {
		p.Email = in.Email
	}
	if in.Unit != nil {
		p.Unit = in.Unit
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, p, in.Version); err != nil {
		return nil, err
	}

	s.broadcast(ctx, "patient.updated", websocket.TopicPatients, p)
	s.fanOut(webhook.EventPatientUpdated, p)
	return p, nil
}

// ChangeStatus moves a patient through the service lifecycle. Entering
// service assigns the acting attendant; finishing clears the queue slot;
// returning to the queue restarts the wait clock.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, status string, version int, attendantID *uuid.UUID) (*Patient, error) {
	if !ValidStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ValidTransition(p.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.Status, status)
	}

	now := time.Now().UTC()
	switch status {
	case StatusInService:
		p.AttendantID = attendantID
	case StatusFinished:
		p.QueueEnteredAt = nil
	case StatusQueued:
		p.QueueEnteredAt = &now
		p.AttendantID = nil
	}
	p.Status = status
	p.UpdatedAt = now

	if err := s.repo.Update(ctx, p, version); err != nil {
		return nil, err
	}

	s.broadcast(ctx, "patient.status_changed", websocket.TopicQueue, p)
	s.broadcast(ctx, "patient.status_changed", websocket.TopicPatients, p)
	s.fanOut(webhook.EventPatientStatusMoved, p)
	return p, nil
}

// Transfer moves a patient to another sector, optionally reassigning the
// attendant.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID, in TransferInput) (*Patient, error) {
	if in.SectorID == uuid.Nil {
		return nil, fmt.Errorf("%w: sector_id is required", ErrInvalidInput)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sectorID := in.SectorID
	p.SectorID = &sectorID
	if in.AttendantID != nil {
		p.AttendantID = in.AttendantID
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, p, in.Version); err != nil {
		return nil, err
	}

	s.broadcast(ctx, "patient.transferred", websocket.TopicQueue, p)
	s.broadcast(ctx, "patient.transferred", websocket.TopicPatients, p)
	s.fanOut(webhook.EventPatientUpdated, p)
	return p, nil
}

func (s *Service) broadcast(ctx context.Context, eventType, topic string, p *Patient) {
	if s.ws == nil {
		return
	}
	ev, err := websocket.NewEvent(eventType, topic, p)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to build realtime event")
		return
	}
	if err := s.ws.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to publish realtime event")
	}
}

func (s *Service) fanOut(evento string, p *Patient) {
	if s.hooks == nil {
		return
	}
	ev, err := webhook.NewEvent(evento, p)
	if err != nil {
		s.log.Warn().Err(err).Str("evento", evento).Msg("failed to build webhook event")
		return
	}
	s.hooks.PublishAsync(ev)
}
