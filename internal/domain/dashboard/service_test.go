package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type mockRepo struct {
	queueSize     int
	inService     int
	finished      int
	avgHandle     float64
	avgWait       float64
	callsByStatus map[string]int
	bySector      []SectorCount
}

func (m *mockRepo) CountPatientsByStatus(_ context.Context, status string) (int, error) {
	if status == "fila" {
		return m.queueSize, nil
	}
	return m.inService, nil
}

func (m *mockRepo) CountFinishedOn(_ context.Context, _ time.Time) (int, error) {
	return m.finished, nil
}

func (m *mockRepo) AvgHandleSeconds(_ context.Context, _ time.Time) (float64, error) {
	return m.avgHandle, nil
}

func (m *mockRepo) AvgQueueWaitMinutes(_ context.Context, _ time.Time) (float64, error) {
	return m.avgWait, nil
}

func (m *mockRepo) CallsByStatus(_ context.Context, _ time.Time) (map[string]int, error) {
	return m.callsByStatus, nil
}

func (m *mockRepo) PatientsBySector(_ context.Context) ([]SectorCount, error) {
	return m.bySector, nil
}

func TestMetrics(t *testing.T) {
	repo := &mockRepo{
		queueSize: 4,
		inService: 2,
		finished:  7,
		avgHandle: 120.5,
		avgWait:   18.2,
		callsByStatus: map[string]int{
			"atendida":     10,
			"nao_atendida": 3,
		},
		bySector: []SectorCount{{SectorID: uuid.New(), Name: "Oncologia", Count: 5}},
	}
	svc := NewService(repo)

	day := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	m, err := svc.Metrics(context.Background(), day)
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}
	if m.Date != "2026-08-31" {
		t.Errorf("unexpected date %q", m.Date)
	}
	if m.QueueSize != 4 || m.InService != 2 || m.FinishedToday != 7 {
		t.Errorf("unexpected counts: %+v", m)
	}
	if m.AvgHandleSeconds != 120.5 || m.AvgWaitMinutes != 18.2 {
		t.Errorf("unexpected averages: %+v", m)
	}
	if m.CallsByStatus["atendida"] != 10 {
		t.Errorf("unexpected calls by status: %v", m.CallsByStatus)
	}
}

func TestMetrics_EmptyCollectionsNotNil(t *testing.T) {
	svc := NewService(&mockRepo{})

	m, err := svc.Metrics(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}
	if m.CallsByStatus == nil {
		t.Error("calls_by_status must marshal as an object, not null")
	}
	if m.PatientsBySector == nil {
		t.Error("patients_by_sector must marshal as an array, not null")
	}
}

func TestMetricsHandler(t *testing.T) {
	h := NewHandler(NewService(&mockRepo{queueSize: 1}))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/dashboard/metrics?date=2026-08-30", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Metrics(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got Metrics
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if got.Date != "2026-08-30" {
		t.Errorf("expected requested date echoed back, got %q", got.Date)
	}

	req = httptest.NewRequest(http.MethodGet, "/dashboard/metrics?date=31-08-2026", nil)
	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	if err := h.Metrics(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed date, got %d", rec.Code)
	}
}
