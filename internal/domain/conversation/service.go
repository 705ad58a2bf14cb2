package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/platform/webhook"
	"github.com/connectsaude/connect/internal/platform/websocket"
)

// ErrInvalidInput indicates the request payload failed validation.
var ErrInvalidInput = errors.New("invalid conversation input")

const previewMaxRunes = 80

// PreviewUpdater pushes the latest message preview onto the patient row.
type PreviewUpdater interface {
	UpdatePreview(ctx context.Context, patientID uuid.UUID, preview string) error
}

// WebhookPublisher fans a domain event out to registered endpoints.
type WebhookPublisher interface {
	PublishAsync(event webhook.Event)
}

// Service implements conversation business rules on top of a Repository.
type Service struct {
	repo     Repository
	previews PreviewUpdater
	ws       websocket.Publisher
	hooks    WebhookPublisher
	log      zerolog.Logger
}

func NewService(repo Repository, previews PreviewUpdater, ws websocket.Publisher, hooks WebhookPublisher, log zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		previews: previews,
		ws:       ws,
		hooks:    hooks,
		log:      log.With().Str("component", "conversation").Logger(),
	}
}

// GetOrCreateByPatient returns the patient's thread, creating it on first
// contact. Creation races resolve to the winning row.
func (s *Service) GetOrCreateByPatient(ctx context.Context, patientID uuid.UUID) (*Conversation, error) {
	conv, err := s.repo.GetByPatient(ctx, patientID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	conv = &Conversation{
		ID:        uuid.New(),
		PatientID: patientID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, conv); err != nil {
		if errors.Is(err, ErrDuplicateConversation) {
			return s.repo.GetByPatient(ctx, patientID)
		}
		return nil, err
	}
	return conv, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Conversation, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) GetByPatient(ctx context.Context, patientID uuid.UUID) (*Conversation, error) {
	return s.repo.GetByPatient(ctx, patientID)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Conversation, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// MessageInput carries the fields of a new message.
type MessageInput struct {
	AuthorRole  string     `json:"author_role"`
	AttendantID *uuid.UUID `json:"attendant_id"`
	ContentType string     `json:"content_type"`
	Body        string     `json:"body"`
}

// PostMessage appends a message to a conversation, refreshes the
// patient's last-message preview and notifies subscribers.
func (s *Service) PostMessage(ctx context.Context, conversationID uuid.UUID, in MessageInput) (*Message, error) {
	if !ValidAuthorRole(in.AuthorRole) {
		return nil, fmt.Errorf("%w: unknown author role %q", ErrInvalidInput, in.AuthorRole)
	}
	contentType := in.ContentType
	if contentType == "" {
		contentType = ContentText
	}
	if !ValidContentType(contentType) {
		return nil, fmt.Errorf("%w: unknown content type %q", ErrInvalidInput, contentType)
	}
	if contentType == ContentText && strings.TrimSpace(in.Body) == "" {
		return nil, fmt.Errorf("%w: text messages need a body", ErrInvalidInput)
	}
	if in.AuthorRole == AuthorAttendant && in.AttendantID == nil {
		return nil, fmt.Errorf("%w: attendant messages need attendant_id", ErrInvalidInput)
	}

	conv, err := s.repo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	m := &Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		AuthorRole:     in.AuthorRole,
		AttendantID:    in.AttendantID,
		ContentType:    contentType,
		Body:           in.Body,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	if s.previews != nil {
		if err := s.previews.UpdatePreview(ctx, conv.PatientID, messagePreview(m)); err != nil {
			s.log.Warn().Err(err).Stringer("patient_id", conv.PatientID).Msg("failed to update patient preview")
		}
	}

	s.broadcast(ctx, "message.created", websocket.TopicConversation(conversationID), m)
	s.fanOut(webhook.EventMessageReceived, m)
	return m, nil
}

func (s *Service) ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	if _, err := s.repo.GetByID(ctx, conversationID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListMessages(ctx, conversationID, limit, offset)
}

// AttachmentInput carries file metadata for a message attachment.
type AttachmentInput struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	StorageURL  string `json:"storage_url"`
}

// AttachFile records file metadata against an existing message.
func (s *Service) AttachFile(ctx context.Context, messageID uuid.UUID, in AttachmentInput) (*Attachment, error) {
	switch {
	case strings.TrimSpace(in.FileName) == "":
		return nil, fmt.Errorf("%w: file_name is required", ErrInvalidInput)
	case strings.TrimSpace(in.StorageURL) == "":
		return nil, fmt.Errorf("%w: storage_url is required", ErrInvalidInput)
	case in.Size < 0:
		return nil, fmt.Errorf("%w: size cannot be negative", ErrInvalidInput)
	}

	if _, err := s.repo.GetMessage(ctx, messageID); err != nil {
		return nil, err
	}

	a := &Attachment{
		ID:          uuid.New(),
		MessageID:   messageID,
		FileName:    in.FileName,
		ContentType: in.ContentType,
		Size:        in.Size,
		StorageURL:  in.StorageURL,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.repo.CreateAttachment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SetTranscription stores the transcription text of an audio attachment.
func (s *Service) SetTranscription(ctx context.Context, attachmentID uuid.UUID, transcription string) error {
	if strings.TrimSpace(transcription) == "" {
		return fmt.Errorf("%w: transcription cannot be empty", ErrInvalidInput)
	}
	return s.repo.SetTranscription(ctx, attachmentID, transcription)
}

func (s *Service) ListAttachments(ctx context.Context, messageID uuid.UUID) ([]*Attachment, error) {
	return s.repo.ListAttachments(ctx, messageID)
}

// messagePreview renders the short preview shown in patient listings.
func messagePreview(m *Message) string {
	if m.ContentType != ContentText {
		return "[" + m.ContentType + "]"
	}
	body := strings.TrimSpace(m.Body)
	if utf8.RuneCountInString(body) <= previewMaxRunes {
		return body
	}
	runes := []rune(body)
	return string(runes[:previewMaxRunes])
}

func (s *Service) broadcast(ctx context.Context, eventType, topic string, payload interface{}) {
	if s.ws == nil {
		return
	}
	ev, err := websocket.NewEvent(eventType, topic, payload)
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to build realtime event")
		return
	}
	if err := s.ws.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to publish realtime event")
	}
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
