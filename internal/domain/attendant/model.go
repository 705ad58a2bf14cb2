package attendant

import (
	"time"

	"github.com/google/uuid"
)

// Roles assignable to an attendant.
const (
	RoleAttendant  = "attendant"
	RoleSupervisor = "supervisor"
	RoleAdmin      = "admin"
)

// Presence states reported by the frontend.
const (
	StatusOnline  = "online"
	StatusAway    = "away"
	StatusOffline = "offline"
)

// Attendant is a staff member handling patient conversations and calls.
type Attendant struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	SectorID     *uuid.UUID `db:"sector_id" json:"sector_id,omitempty"`
	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// ValidRole reports whether role is one of the known roles.
func ValidRole(role string) bool {
	switch role {
	case RoleAttendant, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// ValidStatus reports whether status is a known presence state.
func ValidStatus(status string) bool {
	switch status {
	case StatusOnline, StatusAway, StatusOffline:
		return true
	}
	return false
}
