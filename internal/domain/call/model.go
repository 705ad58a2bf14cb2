package call

import (
	"time"

	"github.com/google/uuid"
)

// Call directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Call outcomes.
const (
	StatusAnswered  = "atendida"
	StatusMissed    = "nao_atendida"
	StatusBusy      = "ocupada"
	StatusVoicemail = "caixa_postal"
)

// Call is a phone interaction handled by an attendant.
type Call struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       *uuid.UUID `db:"patient_id" json:"patient_id,omitempty"`
	AttendantID     uuid.UUID  `db:"attendant_id" json:"attendant_id"`
	Direction       string     `db:"direction" json:"direction"`
	Status          string     `db:"status" json:"status"`
	DurationSeconds int        `db:"duration_seconds" json:"duration_seconds"`
	StartedAt       time.Time  `db:"started_at" json:"started_at"`
	EndedAt         *time.Time `db:"ended_at" json:"ended_at,omitempty"`
}

// InProgress reports whether the call has not been completed yet.
func (c *Call) InProgress() bool {
	return c.EndedAt == nil
}

// ValidDirection reports whether d is a known call direction.
func ValidDirection(d string) bool {
	return d == DirectionInbound || d == DirectionOutbound
}

// ValidStatus reports whether s is a known call outcome.
func ValidStatus(s string) bool {
	switch s {
	case StatusAnswered, StatusMissed, StatusBusy, StatusVoicemail:
		return true
	}
	return false
}
