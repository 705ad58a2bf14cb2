package sector

import (
	"time"

	"github.com/google/uuid"
)

// Sector is a routing and grouping unit for attendants and patients,
// such as pre-sale or support.
type Sector struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Color     string    `db:"color" json:"color"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
