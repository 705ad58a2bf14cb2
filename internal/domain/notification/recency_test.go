package notification

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func notifAgo(ago time.Duration, read bool, now time.Time) *Notification {
	return &Notification{
		ID:          uuid.New(),
		AttendantID: uuid.New(),
		Type:        TypeSystem,
		Title:       "t",
		Read:        read,
		CreatedAt:   now.Add(-ago),
	}
}

func TestGroupByRecency(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)

	today := notifAgo(2*time.Hour, false, now)
	yesterday := notifAgo(30*time.Hour, false, now)
	lastWeek := notifAgo(5*24*time.Hour, false, now)
	weekEdge := notifAgo(7*24*time.Hour, false, now)
	tooOld := notifAgo(8*24*time.Hour, false, now)

	feed := GroupByRecency([]*Notification{today, yesterday, lastWeek, weekEdge, tooOld}, now)

	if len(feed.Today) != 1 || feed.Today[0].ID != today.ID {
		t.Errorf("today bucket wrong: %+v", feed.Today)
	}
	if len(feed.Yesterday) != 1 || feed.Yesterday[0].ID != yesterday.ID {
		t.Errorf("yesterday bucket wrong: %+v", feed.Yesterday)
	}
	if len(feed.LastWeek) != 2 {
		t.Errorf("expected 2 last-week entries, got %d", len(feed.LastWeek))
	}
	for _, n := range feed.LastWeek {
		if n.ID == tooOld.ID {
			t.Error("notifications older than 7 days must be excluded")
		}
	}
}

func TestGroupByRecency_EmptyBucketsPresent(t *testing.T) {
	feed := GroupByRecency(nil, time.Now())
	if feed.Today == nil || feed.Yesterday == nil || feed.LastWeek == nil {
		t.Error("buckets must be empty slices, not nil")
	}
}

func TestGroupByRecency_ElapsedTimeNotCalendar(t *testing.T) {
	// 23h ago crosses midnight on the calendar but is still "today"
	// by elapsed time.
	now := time.Date(2026, 8, 31, 1, 0, 0, 0, time.UTC)
	n := notifAgo(23*time.Hour, false, now)

	feed := GroupByRecency([]*Notification{n}, now)
	if len(feed.Today) != 1 {
		t.Errorf("23h elapsed should bucket as today, feed: %+v", feed)
	}
}

func TestUnreadCount(t *testing.T) {
	now := time.Now()
	notifications := []*Notification{
		notifAgo(time.Hour, false, now),
		notifAgo(time.Hour, true, now),
		notifAgo(time.Hour, false, now),
	}
	if got := UnreadCount(notifications); got != 2 {
		t.Errorf("expected 2 unread, got %d", got)
	}
}
