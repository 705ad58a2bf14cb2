package dashboard

import (
	"context"
	"time"
)

// Service assembles the dashboard snapshot from the aggregate queries.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Metrics builds the snapshot for the given day. Queue and in-service
// counts are always current; the day scopes the call and completion
// aggregates.
func (s *Service) Metrics(ctx context.Context, day time.Time) (*Metrics, error) {
	queueSize, err := s.repo.CountPatientsByStatus(ctx, "fila")
	if err != nil {
		return nil, err
	}
	inService, err := s.repo.CountPatientsByStatus(ctx, "em_atendimento")
	if err != nil {
		return nil, err
	}
	finished, err := s.repo.CountFinishedOn(ctx, day)
	if err != nil {
		return nil, err
	}
	tma, err := s.repo.AvgHandleSeconds(ctx, day)
	if err != nil {
		return nil, err
	}
	tme, err := s.repo.AvgQueueWaitMinutes(ctx, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	callsByStatus, err := s.repo.CallsByStatus(ctx, day)
	if err != nil {
		return nil, err
	}
	bySector, err := s.repo.PatientsBySector(ctx)
	if err != nil {
		return nil, err
	}
	if callsByStatus == nil {
		callsByStatus = map[string]int{}
	}
	if bySector == nil {
		bySector = []SectorCount{}
	}

	return &Metrics{
		Date:             day.Format("2006-01-02"),
		QueueSize:        queueSize,
		InService:        inService,
		FinishedToday:    finished,
		AvgHandleSeconds: tma,
		AvgWaitMinutes:   tme,
		CallsByStatus:    callsByStatus,
		PatientsBySector: bySector,
	}, nil
}
