package api

import (
	"cmp"
	"slices"
	"time"

	"polyglot/internal/queue"
)

// QueueFilter narrows a queue listing. Zero values match everything.
type QueueFilter struct {
	Statuses []queue.Status
	PostID   int64
}

// NewQueueFilter builds a filter from raw status strings, dropping unknown
// values, and an optional post ID.
func NewQueueFilter(statuses []string, postID int64) QueueFilter {
	return QueueFilter{Statuses: ParseStatuses(statuses), PostID: postID}
}

// Matches reports whether item passes the filter.
func (f QueueFilter) Matches(item QueueItem) bool {
	if f.PostID > 0 && item.PostID != f.PostID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	return slices.Contains(f.Statuses, queue.Status(item.Status))
}

// SortQueueItemsNewestFirst returns a copy ordered by creation time, newest
// first. Items created in the same instant keep the later enqueue first.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b QueueItem) int {
		if c := ParseQueueTime(b.CreatedAt).Compare(ParseQueueTime(a.CreatedAt)); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return sorted
}

// ParseQueueTime reads a queue DTO timestamp. Unparseable values yield the
// zero time so they sort last.
func ParseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
