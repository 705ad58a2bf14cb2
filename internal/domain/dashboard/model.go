package dashboard

import "github.com/google/uuid"

// SectorCount is the number of patients attached to one sector.
type SectorCount struct {
	SectorID uuid.UUID `json:"sector_id"`
	Name     string    `json:"name"`
	Count    int       `json:"count"`
}

// Metrics is the operational snapshot shown on the panel dashboard.
// TMA is the day's average handle time over answered calls; TME is the
// average wait of patients currently queued.
type Metrics struct {
	Date             string         `json:"date"`
	QueueSize        int            `json:"queue_size"`
	InService        int            `json:"in_service"`
	FinishedToday    int            `json:"finished_today"`
	AvgHandleSeconds float64        `json:"avg_handle_seconds"`
	AvgWaitMinutes   float64        `json:"avg_wait_minutes"`
	CallsByStatus    map[string]int `json:"calls_by_status"`
	PatientsBySector []SectorCount  `json:"patients_by_sector"`
}
