package api

import (
	"time"

	"polyglot/internal/processor"
	"polyglot/internal/queue"
	"polyglot/internal/scheduler"
)

// FromQueueItem converts a queue record to its API representation.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	dto := QueueItem{
		ID:           item.ID,
		PostID:       item.PostID,
		SourceLang:   item.SourceLang,
		TargetLang:   item.TargetLang,
		Status:       string(item.Status),
		Prompt:       item.Prompt,
		Response:     item.Response,
		ErrorMessage: item.ErrorMessage,
		CreatedAt:    FormatTime(item.CreatedAt),
	}
	if item.ProcessedAt != nil {
		dto.ProcessedAt = FormatTime(*item.ProcessedAt)
	}
	return dto
}

// FromQueueItems converts a slice of queue records into API DTOs.
func FromQueueItems(items []*queue.Item) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]QueueItem, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, FromQueueItem(item))
	}
	return out
}

// MergeQueueStats produces a string-keyed representation of queue stats.
// Every known status is present so clients can render fixed columns.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	out := make(map[string]int, len(stats))
	for _, status := range queue.AllStatuses() {
		out[string(status)] = 0
	}
	for status, count := range stats {
		out[string(status)] = count
	}
	return out
}

// FromLease converts a lease to its API form.
func FromLease(lease *queue.Lease) *LeaseInfo {
	if lease == nil {
		return nil
	}
	return &LeaseInfo{
		Owner:      lease.Owner,
		AcquiredAt: FormatTime(lease.AcquiredAt),
		ExpiresAt:  FormatTime(lease.ExpiresAt),
	}
}

// FromSummary converts a processor run summary.
func FromSummary(summary processor.Summary) BatchSummary {
	return BatchSummary{
		LockHeld:   summary.LockHeld,
		Processed:  summary.Processed,
		Completed:  summary.Completed,
		Failed:     summary.Failed,
		Aborted:    summary.Aborted,
		DurationMS: float64(summary.Duration) / float64(time.Millisecond),
	}
}

// FromSchedulerStatus converts a scheduler snapshot.
func FromSchedulerStatus(status scheduler.Status) *SchedulerStatus {
	out := &SchedulerStatus{
		Running:         status.Running,
		IntervalSeconds: status.Interval.Seconds(),
		Runs:            status.Runs,
		LastRunAt:       FormatTime(status.LastRunAt),
		LastError:       status.LastError,
	}
	if status.Runs > 0 {
		summary := FromSummary(status.LastSummary)
		out.LastSummary = &summary
	}
	return out
}

// FormatTime converts a time to RFC3339 or returns empty string.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
