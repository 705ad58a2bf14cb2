package call

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RankingEntry is one attendant's aggregated call performance for a day.
type RankingEntry struct {
	AttendantID   uuid.UUID `json:"attendant_id"`
	Rank          int       `json:"rank"`
	AnsweredCalls int       `json:"answered_calls"`
	AvgHandleSecs float64   `json:"avg_handle_seconds"`
	Satisfaction  float64   `json:"satisfaction"`
	Score         float64   `json:"score"`
}

// Rank aggregates answered calls from the given day per attendant and
// returns the top three performers, ranked 1 to 3.
//
// Score favors volume, rewards short handle times (a zero average
// contributes nothing) and folds in externally sourced satisfaction:
//
//	count*10 + (handle > 0 ? 1000/handle : 0) + satisfaction*5
func Rank(calls []*Call, satisfaction map[uuid.UUID]float64, day time.Time) []RankingEntry {
	type agg struct {
		count     int
		totalSecs int
	}
	byAttendant := make(map[uuid.UUID]*agg)

	y, m, d := day.Date()
	for _, c := range calls {
		if c.Status != StatusAnswered {
			continue
		}
		cy, cm, cd := c.StartedAt.Date()
		if cy != y || cm != m || cd != d {
			continue
		}
		a := byAttendant[c.AttendantID]
		if a == nil {
			a = &agg{}
			byAttendant[c.AttendantID] = a
		}
		a.count++
		a.totalSecs += c.DurationSeconds
	}

	entries := make([]RankingEntry, 0, len(byAttendant))
	for id, a := range byAttendant {
		avg := 0.0
		if a.count > 0 {
			avg = float64(a.totalSecs) / float64(a.count)
		}
		score := float64(a.count) * 10
		if avg > 0 {
			score += 1000 / avg
		}
		sat := satisfaction[id]
		score += sat * 5

		entries = append(entries, RankingEntry{
			AttendantID:   id,
			AnsweredCalls: a.count,
			AvgHandleSecs: avg,
			Satisfaction:  sat,
			Score:         score,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].AttendantID.String() < entries[j].AttendantID.String()
	})

	if len(entries) > 3 {
		entries = entries[:3]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
