package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Message author roles.
const (
	AuthorPatient   = "patient"
	AuthorAttendant = "attendant"
)

// Message content types.
const (
	ContentText     = "text"
	ContentImage    = "image"
	ContentAudio    = "audio"
	ContentSticker  = "sticker"
	ContentDocument = "document"
)

// Conversation is the single message thread a patient has with the team.
type Conversation struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	AttendantID *uuid.UUID `db:"attendant_id" json:"attendant_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Message is one entry in a conversation.
type Message struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversation_id"`
	AuthorRole     string     `db:"author_role" json:"author_role"`
	AttendantID    *uuid.UUID `db:"attendant_id" json:"attendant_id,omitempty"`
	ContentType    string     `db:"content_type" json:"content_type"`
	Body           string     `db:"body" json:"body"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
}

// Attachment is file metadata linked to a message. Audio attachments may
// carry a transcription produced after upload.
type Attachment struct {
	ID            uuid.UUID `db:"id" json:"id"`
	MessageID     uuid.UUID `db:"message_id" json:"message_id"`
	FileName      string    `db:"file_name" json:"file_name"`
	ContentType   string    `db:"content_type" json:"content_type"`
	Size          int64     `db:"size" json:"size"`
	StorageURL    string    `db:"storage_url" json:"storage_url"`
	Transcription *string   `db:"transcription" json:"transcription,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// ValidAuthorRole reports whether role is a known message author role.
func ValidAuthorRole(role string) bool {
	return role == AuthorPatient || role == AuthorAttendant
}

// ValidContentType reports whether ct is a known message content type.
func ValidContentType(ct string) bool {
	switch ct {
	case ContentText, ContentImage, ContentAudio, ContentSticker, ContentDocument:
		return true
	}
	return false
}
