package notification

import (
	"time"

	"github.com/google/uuid"
)

// Notification types produced by the service.
const (
	TypeQueueAlert = "queue_alert"
	TypeNewPatient = "new_patient"
	TypeNewMessage = "new_message"
	TypeSystem     = "system"
)

// Notification is an in-app alert addressed to one attendant.
type Notification struct {
	ID          uuid.UUID `db:"id" json:"id"`
	AttendantID uuid.UUID `db:"attendant_id" json:"attendant_id"`
	Type        string    `db:"type" json:"type"`
	Title       string    `db:"title" json:"title"`
	Message     string    `db:"message" json:"message"`
	Read        bool      `db:"read" json:"read"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
