package call

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/platform/webhook"
)

// ErrInvalidInput indicates the request payload failed validation.
var ErrInvalidInput = errors.New("invalid call input")

// SatisfactionSource supplies per-attendant satisfaction scores for a
// day. Scores come from an external survey system.
type SatisfactionSource interface {
	Satisfaction(ctx context.Context, day time.Time) (map[uuid.UUID]float64, error)
}

// WebhookPublisher fans a domain event out to registered endpoints.
type WebhookPublisher interface {
	PublishAsync(event webhook.Event)
}

// Service implements call business rules on top of a Repository.
type Service struct {
	repo         Repository
	satisfaction SatisfactionSource
	hooks        WebhookPublisher
	log          zerolog.Logger
}

func NewService(repo Repository, satisfaction SatisfactionSource, hooks WebhookPublisher, log zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		satisfaction: satisfaction,
		hooks:        hooks,
		log:          log.With().Str("component", "call").Logger(),
	}
}

// StartInput carries the fields of a new call. The call's status stays
// empty until completion.
type StartInput struct {
	PatientID *uuid.UUID `json:"patient_id"`
	Direction string     `json:"direction"`
}

// Start records the beginning of a call for the given attendant.
func (s *Service) Start(ctx context.Context, attendantID uuid.UUID, in StartInput) (*Call, error) {
	if attendantID == uuid.Nil {
		return nil, fmt.Errorf("%w: attendant is required", ErrInvalidInput)
	}
	if !ValidDirection(in.Direction) {
		return nil, fmt.Errorf("%w: unknown direction %q", ErrInvalidInput, in.Direction)
	}

	c := &Call{
		ID:          uuid.New(),
		PatientID:   in.PatientID,
		AttendantID: attendantID,
		Direction:   in.Direction,
		StartedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// CompleteInput carries the outcome of a finished call.
type CompleteInput struct {
	Status          string `json:"status"`
	DurationSeconds int    `json:"duration_seconds"`
}

// Complete closes a call with its outcome and duration.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, in CompleteInput) (*Call, error) {
	if !ValidStatus(in.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, in.Status)
	}
	if in.DurationSeconds < 0 {
		return nil, fmt.Errorf("%w: duration cannot be negative", ErrInvalidInput)
	}

	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !c.InProgress() {
		return nil, ErrAlreadyCompleted
	}

	now := time.Now().UTC()
	c.Status = in.Status
	c.DurationSeconds = in.DurationSeconds
	c.EndedAt = &now

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}

	s.fanOut(webhook.EventCallLogged, c)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Call, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Call, int, error) {
	return s.repo.List(ctx, filter)
}

// Ranking returns the day's top three attendants by call performance.
func (s *Service) Ranking(ctx context.Context, day time.Time) ([]RankingEntry, error) {
	calls, err := s.repo.ListByDay(ctx, day)
	if err != nil {
		return nil, err
	}

	scores := map[uuid.UUID]float64{}
	if s.satisfaction != nil {
		scores, err = s.satisfaction.Satisfaction(ctx, day)
		if err != nil {
			s.log.Warn().Err(err).Msg("satisfaction source unavailable, ranking without it")
			scores = map[uuid.UUID]float64{}
		}
	}
	return Rank(calls, scores, day), nil
}

func (s *Service) fanOut(evento string, payload interface{}) {
	if s.hooks == nil {
		return
	}
	ev, err := webhook.NewEvent(evento, payload)
	if err != nil {
		s.log.Warn().Err(err).Str("evento", evento).Msg("failed to build webhook event")
		return
	}
	s.hooks.PublishAsync(ev)
}
