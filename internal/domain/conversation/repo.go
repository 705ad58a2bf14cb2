package conversation

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	// ErrNotFound indicates the conversation does not exist.
	ErrNotFound = errors.New("conversation not found")
	// ErrMessageNotFound indicates the message does not exist.
	ErrMessageNotFound = errors.New("message not found")
	// ErrAttachmentNotFound indicates the attachment does not exist.
	ErrAttachmentNotFound = errors.New("attachment not found")
	// ErrDuplicateConversation indicates the patient already has a thread.
	ErrDuplicateConversation = errors.New("patient already has a conversation")
)

// Repository provides access to conversations, messages and attachments.
type Repository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	GetByPatient(ctx context.Context, patientID uuid.UUID) (*Conversation, error)
	Update(ctx context.Context, c *Conversation) error
	List(ctx context.Context, limit, offset int) ([]*Conversation, int, error)

	CreateMessage(ctx context.Context, m *Message) error
	GetMessage(ctx context.Context, id uuid.UUID) (*Message, error)
	ListMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*Message, int, error)

	CreateAttachment(ctx context.Context, a *Attachment) error
	SetTranscription(ctx context.Context, attachmentID uuid.UUID, transcription string) error
	ListAttachments(ctx context.Context, messageID uuid.UUID) ([]*Attachment, error)
}
