package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient lifecycle states.
const (
	StatusQueued    = "fila"
	StatusInService = "em_atendimento"
	StatusFinished  = "finalizado"
)

// Patient is a person who reached out through one of the intake channels.
type Patient struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	Name           string     `db:"name" json:"name"`
	Phone          string     `db:"phone" json:"phone"`
	CPF            *string    `db:"cpf" json:"cpf,omitempty"`
	Email          *string    `db:"email" json:"email,omitempty"`
	Unit           *string    `db:"unit" json:"unit,omitempty"`
	SectorID       *uuid.UUID `db:"sector_id" json:"sector_id,omitempty"`
	AttendantID    *uuid.UUID `db:"attendant_id" json:"attendant_id,omitempty"`
	Status         string     `db:"status" json:"status"`
	QueueEnteredAt *time.Time `db:"queue_entered_at" json:"queue_entered_at,omitempty"`
	LastMessage    *string    `db:"last_message" json:"last_message,omitempty"`
	Version        int        `db:"version" json:"version"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// WaitMinutes returns how long the patient has been in the queue,
// or 0 when the patient is not queued.
func (p *Patient) WaitMinutes(now time.Time) int {
	if p.Status != StatusQueued || p.QueueEnteredAt == nil {
		return 0
	}
	m := int(now.Sub(*p.QueueEnteredAt).Minutes())
	if m < 0 {
		return 0
	}
	return m
}

// ValidStatus reports whether status is a known lifecycle state.
func ValidStatus(status string) bool {
	switch status {
	case StatusQueued, StatusInService, StatusFinished:
		return true
	}
	return false
}

// ValidTransition reports whether moving from one status to another is
// allowed. Finished patients cannot move again; in-service patients may
// return to the queue.
func ValidTransition(from, to string) bool {
	switch from {
	case StatusQueued:
		return to == StatusInService
	case StatusInService:
		return to == StatusFinished || to == StatusQueued
	}
	return false
}
