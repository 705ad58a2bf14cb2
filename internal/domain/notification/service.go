package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/platform/websocket"
)

// ErrInvalidInput indicates the request payload failed validation.
var ErrInvalidInput = errors.New("invalid notification input")

// Feed entries older than this many days are dropped.
const feedMaxAgeDays = 7

// Service implements the notification feed on top of a Repository.
type Service struct {
	repo Repository
	ws   websocket.Publisher
	log  zerolog.Logger
}

func NewService(repo Repository, ws websocket.Publisher, log zerolog.Logger) *Service {
	return &Service{
		repo: repo,
		ws:   ws,
		log:  log.With().Str("component", "notification").Logger(),
	}
}

// Notify creates a notification and pushes it to the attendant's
// realtime topic.
func (s *Service) Notify(ctx context.Context, attendantID uuid.UUID, notifType, title, message string) (*Notification, error) {
	switch {
	case attendantID == uuid.Nil:
		return nil, fmt.Errorf("%w: attendant is required", ErrInvalidInput)
	case strings.TrimSpace(title) == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if notifType == "" {
		notifType = TypeSystem
	}

	n := &Notification{
		ID:          uuid.New(),
		AttendantID: attendantID,
		Type:        notifType,
		Title:       title,
		Message:     message,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}

	if s.ws != nil {
		ev, err := websocket.NewEvent("notification.created", websocket.TopicNotifications(attendantID), n)
		if err == nil {
			err = s.ws.Publish(ctx, ev)
		}
		if err != nil {
			s.log.Warn().Err(err).Stringer("attendant_id", attendantID).Msg("failed to push notification")
		}
	}
	return n, nil
}

// FeedResponse is the grouped feed plus its unread counter.
type FeedResponse struct {
	Feed        Feed `json:"feed"`
	UnreadCount int  `json:"unread_count"`
}

// Feed returns the attendant's bucketed notification feed.
func (s *Service) Feed(ctx context.Context, attendantID uuid.UUID) (*FeedResponse, error) {
	notifications, err := s.repo.ListByAttendant(ctx, attendantID, feedMaxAgeDays)
	if err != nil {
		return nil, err
	}
	return &FeedResponse{
		Feed:        GroupByRecency(notifications, time.Now().UTC()),
		UnreadCount: UnreadCount(notifications),
	}, nil
}

func (s *Service) MarkRead(ctx context.Context, id uuid.UUID) error {
	return s.repo.MarkRead(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, attendantID uuid.UUID) error {
	return s.repo.MarkAllRead(ctx, attendantID)
}
