package conversation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/connectsaude/connect/internal/platform/webhook"
	"github.com/connectsaude/connect/internal/platform/websocket"
)

type mockRepo struct {
	conversations map[uuid.UUID]*Conversation
	byPatient     map[uuid.UUID]uuid.UUID
	messages      map[uuid.UUID]*Message
	attachments   map[uuid.UUID]*Attachment
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		conversations: make(map[uuid.UUID]*Conversation),
		byPatient:     make(map[uuid.UUID]uuid.UUID),
		messages:      make(map[uuid.UUID]*Message),
		attachments:   make(map[uuid.UUID]*Attachment),
	}
}

func (m *mockRepo) Create(_ context.Context, c *Conversation) error {
	if _, ok := m.byPatient[c.PatientID]; ok {
		return ErrDuplicateConversation
	}
	cp := *c
	m.conversations[c.ID] = &cp
	m.byPatient[c.PatientID] = c.ID
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Conversation, error) {
	c, ok := m.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockRepo) GetByPatient(_ context.Context, patientID uuid.UUID) (*Conversation, error) {
	id, ok := m.byPatient[patientID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *m.conversations[id]
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, c *Conversation) error {
	if _, ok := m.conversations[c.ID]; !ok {
		return ErrNotFound
	}
	cp := *c
	m.conversations[c.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Conversation, int, error) {
	var out []*Conversation
	for _, c := range m.conversations {
		cp := *c
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) CreateMessage(_ context.Context, msg *Message) error {
	cp := *msg
	m.messages[msg.ID] = &cp
	if c, ok := m.conversations[msg.ConversationID]; ok {
		c.UpdatedAt = time.Now().UTC()
	}
	return nil
}

func (m *mockRepo) GetMessage(_ context.Context, id uuid.UUID) (*Message, error) {
	msg, ok := m.messages[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	cp := *msg
	return &cp, nil
}

func (m *mockRepo) ListMessages(_ context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error) {
	var out []*Message
	for _, msg := range m.messages {
		if msg.ConversationID == conversationID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) CreateAttachment(_ context.Context, a *Attachment) error {
	cp := *a
	m.attachments[a.ID] = &cp
	return nil
}

func (m *mockRepo) SetTranscription(_ context.Context, attachmentID uuid.UUID, transcription string) error {
	a, ok := m.attachments[attachmentID]
	if !ok {
		return ErrAttachmentNotFound
	}
	a.Transcription = &transcription
	return nil
}

func (m *mockRepo) ListAttachments(_ context.Context, messageID uuid.UUID) ([]*Attachment, error) {
	var out []*Attachment
	for _, a := range m.attachments {
		if a.MessageID == messageID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockPreviews struct {
	previews map[uuid.UUID]string
}

func (m *mockPreviews) UpdatePreview(_ context.Context, patientID uuid.UUID, preview string) error {
	m.previews[patientID] = preview
	return nil
}

type capturingPublisher struct {
	events []websocket.Event
}

func (c *capturingPublisher) Publish(_ context.Context, ev websocket.Event) error {
	c.events = append(c.events, ev)
	return nil
}

type capturingHooks struct {
	events []webhook.Event
}

func (c *capturingHooks) PublishAsync(ev webhook.Event) {
	c.events = append(c.events, ev)
}

func newTestService() (*Service, *mockRepo, *mockPreviews, *capturingPublisher, *capturingHooks) {
	repo := newMockRepo()
	previews := &mockPreviews{previews: make(map[uuid.UUID]string)}
	ws := &capturingPublisher{}
	hooks := &capturingHooks{}
	svc := NewService(repo, previews, ws, hooks, zerolog.Nop())
	return svc, repo, previews, ws, hooks
}

func TestGetOrCreateByPatient(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	patientID := uuid.New()

	first, err := svc.GetOrCreateByPatient(context.Background(), patientID)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := svc.GetOrCreateByPatient(context.Background(), patientID)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if first.ID != second.ID {
		t.Error("a patient must have exactly one conversation")
	}
}

func TestPostMessage(t *testing.T) {
	svc, _, previews, ws, hooks := newTestService()
	patientID := uuid.New()
	conv, _ := svc.GetOrCreateByPatient(context.Background(), patientID)

	attendantID := uuid.New()
	m, err := svc.PostMessage(context.Background(), conv.ID, MessageInput{
		AuthorRole:  AuthorAttendant,
		AttendantID: &attendantID,
		Body:        "Bom dia, como posso ajudar?",
	})
	if err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}
	if m.ContentType != ContentText {
		t.Errorf("expected default content type text, got %q", m.ContentType)
	}

	if got := previews.previews[patientID]; got != "Bom dia, como posso ajudar?" {
		t.Errorf("patient preview not updated, got %q", got)
	}

	if len(ws.events) != 1 {
		t.Fatalf("expected 1 realtime event, got %d", len(ws.events))
	}
	if ws.events[0].Topic != websocket.TopicConversation(conv.ID) {
		t.Errorf("unexpected topic %q", ws.events[0].Topic)
	}

	if len(hooks.events) != 1 || hooks.events[0].Evento != webhook.EventMessageReceived {
		t.Errorf("expected %s webhook, got %v", webhook.EventMessageReceived, hooks.events)
	}
}

func TestPostMessage_Validation(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	conv, _ := svc.GetOrCreateByPatient(context.Background(), uuid.New())

	cases := []struct {
		name string
		in   MessageInput
	}{
		{"bad role", MessageInput{AuthorRole: "bot", Body: "x"}},
		{"bad content type", MessageInput{AuthorRole: AuthorPatient, ContentType: "video", Body: "x"}},
		{"empty text body", MessageInput{AuthorRole: AuthorPatient, Body: "   "}},
		{"attendant without id", MessageInput{AuthorRole: AuthorAttendant, Body: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.PostMessage(context.Background(), conv.ID, tc.in); !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}

	if _, err := svc.PostMessage(context.Background(), uuid.New(), MessageInput{AuthorRole: AuthorPatient, Body: "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown conversation, got %v", err)
	}
}

func TestMessagePreview(t *testing.T) {
	longBody := strings.Repeat("a", 200)
	m := &Message{ContentType: ContentText, Body: longBody}
	if got := messagePreview(m); len([]rune(got)) != previewMaxRunes {
		t.Errorf("expected preview truncated to %d runes, got %d", previewMaxRunes, len([]rune(got)))
	}

	audio := &Message{ContentType: ContentAudio, Body: ""}
	if got := messagePreview(audio); got != "[audio]" {
		t.Errorf("expected [audio] placeholder, got %q", got)
	}
}

func TestAttachFileAndTranscription(t *testing.T) {
	svc, _, _, _, _ := newTestService()
	conv, _ := svc.GetOrCreateByPatient(context.Background(), uuid.New())
	m, err := svc.PostMessage(context.Background(), conv.ID, MessageInput{
		AuthorRole:  AuthorPatient,
		ContentType: ContentAudio,
	})
	if err != nil {
		t.Fatalf("PostMessage failed: %v", err)
	}

	a, err := svc.AttachFile(context.Background(), m.ID, AttachmentInput{
		FileName:    "voice.ogg",
		ContentType: "audio/ogg",
		Size:        2048,
		StorageURL:  "https://files.connect.example/voice.ogg",
	})
	if err != nil {
		t.Fatalf("AttachFile failed: %v", err)
	}

	if err := svc.SetTranscription(context.Background(), a.ID, "preciso remarcar minha consulta"); err != nil {
		t.Fatalf("SetTranscription failed: %v", err)
	}
	atts, err := svc.ListAttachments(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("ListAttachments failed: %v", err)
	}
	if len(atts) != 1 || atts[0].Transcription == nil || *atts[0].Transcription != "preciso remarcar minha consulta" {
		t.Errorf("transcription not stored: %+v", atts)
	}

	if _, err := svc.AttachFile(context.Background(), uuid.New(), AttachmentInput{FileName: "x", StorageURL: "y"}); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("expected ErrMessageNotFound, got %v", err)
	}
	if err := svc.SetTranscription(context.Background(), uuid.New(), "text"); !errors.Is(err, ErrAttachmentNotFound) {
		t.Errorf("expected ErrAttachmentNotFound, got %v", err)
	}
}
