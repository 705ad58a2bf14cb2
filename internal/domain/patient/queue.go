package patient

import (
	"sort"
	"time"
)

// QueueEntry is one row of the ordered waiting queue.
type QueueEntry struct {
	Patient     *Patient `json:"patient"`
	WaitMinutes int      `json:"wait_minutes"`
	Alert       bool     `json:"alert"`
}

// OrderQueue sorts queued patients for display. Patients waiting at or
// beyond alertThreshold come first; within each group longer waits come
// first, ties broken by most recent created_at. The sort is stable and
// the input slice is not modified.
func OrderQueue(patients []*Patient, alertThreshold time.Duration, now time.Time) []QueueEntry {
	entries := make([]QueueEntry, 0, len(patients))
	thresholdMin := int(alertThreshold.Minutes())
	for _, p := range patients {
		if p.Status != StatusQueued {
			continue
		}
		wait := p.WaitMinutes(now)
		entries = append(entries, QueueEntry{
			Patient:     p,
			WaitMinutes: wait,
			Alert:       wait >= thresholdMin,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Alert != b.Alert {
			return a.Alert
		}
		if a.WaitMinutes != b.WaitMinutes {
			return a.WaitMinutes > b.WaitMinutes
		}
		return a.Patient.CreatedAt.After(b.Patient.CreatedAt)
	})
	return entries
}
