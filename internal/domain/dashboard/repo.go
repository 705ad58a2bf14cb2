package dashboard

import (
	"context"
	"time"
)

// Repository runs the aggregate queries behind the dashboard.
type Repository interface {
	CountPatientsByStatus(ctx context.Context, status string) (int, error)
	CountFinishedOn(ctx context.Context, day time.Time) (int, error)
	AvgHandleSeconds(ctx context.Context, day time.Time) (float64, error)
	AvgQueueWaitMinutes(ctx context.Context, now time.Time) (float64, error)
	CallsByStatus(ctx context.Context, day time.Time) (map[string]int, error)
	PatientsBySector(ctx context.Context) ([]SectorCount, error)
}
