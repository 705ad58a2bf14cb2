package notification

import "time"

// Feed is a notification list bucketed by how long ago each entry was
// created.
type Feed struct {
	Today     []*Notification `json:"today"`
	Yesterday []*Notification `json:"yesterday"`
	LastWeek  []*Notification `json:"last_week"`
}

// GroupByRecency buckets notifications by elapsed whole days since
// creation: 0 days is today, 1 is yesterday, 2 through 7 is last week.
// Anything older is dropped from the feed.
func GroupByRecency(notifications []*Notification, now time.Time) Feed {
	feed := Feed{
		Today:     []*Notification{},
		Yesterday: []*Notification{},
		LastWeek:  []*Notification{},
	}
	for _, n := range notifications {
		days := int(now.Sub(n.CreatedAt).Hours() / 24)
		switch {
		case days < 0:
			continue
		case days == 0:
			feed.Today = append(feed.Today, n)
		case days == 1:
			feed.Yesterday = append(feed.Yesterday, n)
		case days <= 7:
			feed.LastWeek = append(feed.LastWeek, n)
		}
	}
	return feed
}

// UnreadCount returns how many notifications are still unread.
func UnreadCount(notifications []*Notification) int {
	count := 0
	for _, n := range notifications {
		if !n.Read {
			count++
		}
	}
	return count
}
