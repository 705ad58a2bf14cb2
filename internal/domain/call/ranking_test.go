package call

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func answeredCall(attendantID uuid.UUID, day time.Time, durationSecs int) *Call {
	ended := day.Add(time.Duration(durationSecs) * time.Second)
	return &Call{
		ID:              uuid.New(),
		AttendantID:     attendantID,
		Direction:       DirectionInbound,
		Status:          StatusAnswered,
		DurationSeconds: durationSecs,
		StartedAt:       day,
		EndedAt:         &ended,
	}
}

func TestRank_ScoreFormula(t *testing.T) {
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	a := uuid.New()

	// 2 answered calls averaging 100s, satisfaction 4.
	calls := []*Call{
		answeredCall(a, day, 80),
		answeredCall(a, day, 120),
	}
	entries := Rank(calls, map[uuid.UUID]float64{a: 4}, day)

	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.AnsweredCalls != 2 {
		t.Errorf("expected 2 answered calls, got %d", e.AnsweredCalls)
	}
	if e.AvgHandleSecs != 100 {
		t.Errorf("expected avg 100s, got %f", e.AvgHandleSecs)
	}
	// 2*10 + 1000/100 + 4*5 = 50
	if e.Score != 50 {
		t.Errorf("expected score 50, got %f", e.Score)
	}
	if e.Rank != 1 {
		t.Errorf("expected rank 1, got %d", e.Rank)
	}
}

func TestRank_ZeroDurationContributesNothing(t *testing.T) {
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	a := uuid.New()

	entries := Rank([]*Call{answeredCall(a, day, 0)}, nil, day)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	// 1*10 + 0 + 0
	if entries[0].Score != 10 {
		t.Errorf("expected score 10, got %f", entries[0].Score)
	}
}

func TestRank_TopThreeOnly(t *testing.T) {
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)

	var calls []*Call
	ids := make([]uuid.UUID, 5)
	for i := range ids {
		ids[i] = uuid.New()
		// Attendant i answers i+1 calls; more calls, higher score.
		for n := 0; n <= i; n++ {
			calls = append(calls, answeredCall(ids[i], day, 60))
		}
	}

	entries := Rank(calls, nil, day)
	if len(entries) != 3 {
		t.Fatalf("expected top 3, got %d", len(entries))
	}
	for i, e := range entries {
		if e.Rank != i+1 {
			t.Errorf("entry %d has rank %d", i, e.Rank)
		}
	}
	if entries[0].AttendantID != ids[4] {
		t.Error("busiest attendant should rank first")
	}
	if entries[0].Score < entries[1].Score || entries[1].Score < entries[2].Score {
		t.Error("scores must be descending")
	}
}

func TestRank_FiltersDayAndStatus(t *testing.T) {
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	a := uuid.New()

	otherDay := answeredCall(a, day.AddDate(0, 0, -1), 60)
	missed := answeredCall(a, day, 60)
	missed.Status = StatusMissed

	entries := Rank([]*Call{otherDay, missed}, nil, day)
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestRank_SatisfactionBreaksTies(t *testing.T) {
	day := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	a, b := uuid.New(), uuid.New()

	calls := []*Call{
		answeredCall(a, day, 100),
		answeredCall(b, day, 100),
	}
	entries := Rank(calls, map[uuid.UUID]float64{b: 5}, day)

	if entries[0].AttendantID != b {
		t.Error("higher satisfaction should rank first on equal call stats")
	}
}
