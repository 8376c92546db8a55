package api

import (
	"testing"
	"time"

	"polyglot/internal/processor"
	"polyglot/internal/queue"
	"polyglot/internal/scheduler"
)

func TestFromQueueItem(t *testing.T) {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	processed := created.Add(90 * time.Second)
	item := &queue.Item{
		ID:          5,
		PostID:      42,
		SourceLang:  "en",
		TargetLang:  "es",
		Status:      queue.StatusCompleted,
		Prompt:      "Translate",
		Response:    "Hola",
		CreatedAt:   created,
		ProcessedAt: &processed,
	}

	dto := FromQueueItem(item)
	if dto.ID != 5 || dto.PostID != 42 || dto.SourceLang != "en" || dto.TargetLang != "es" {
		t.Fatalf("unexpected identity fields: %+v", dto)
	}
	if dto.Status != "completed" || dto.Response != "Hola" || dto.ErrorMessage != "" {
		t.Fatalf("unexpected state fields: %+v", dto)
	}
	if dto.CreatedAt != "2026-03-01T10:00:00.000Z" {
		t.Fatalf("CreatedAt = %q", dto.CreatedAt)
	}
	if dto.ProcessedAt != "2026-03-01T10:01:30.000Z" {
		t.Fatalf("ProcessedAt = %q", dto.ProcessedAt)
	}
}

func TestFromQueueItemPendingHasNoProcessedAt(t *testing.T) {
	dto := FromQueueItem(&queue.Item{ID: 1, Status: queue.StatusPending})
	if dto.ProcessedAt != "" || dto.CreatedAt != "" {
		t.Fatalf("expected empty timestamps, got %+v", dto)
	}
	if got := FromQueueItem(nil); got.ID != 0 {
		t.Fatalf("nil item should convert to zero value, got %+v", got)
	}
}

func TestFromQueueItemsSkipsNil(t *testing.T) {
	out := FromQueueItems([]*queue.Item{{ID: 1}, nil, {ID: 2}})
	if len(out) != 2 || out[0].ID != 1 || out[1].ID != 2 {
		t.Fatalf("unexpected items: %+v", out)
	}
	if FromQueueItems(nil) != nil {
		t.Fatal("expected nil for empty input")
	}
}

func TestMergeQueueStatsFillsEveryStatus(t *testing.T) {
	got := MergeQueueStats(map[queue.Status]int{queue.StatusFailed: 3})
	want := map[string]int{"pending": 0, "processing": 0, "completed": 0, "failed": 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for key, count := range want {
		if got[key] != count {
			t.Fatalf("%s = %d, want %d", key, got[key], count)
		}
	}
}

func TestFromLease(t *testing.T) {
	if FromLease(nil) != nil {
		t.Fatal("expected nil for nil lease")
	}
	acquired := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	info := FromLease(&queue.Lease{Owner: "abc", AcquiredAt: acquired, ExpiresAt: acquired.Add(5 * time.Minute)})
	if info.Owner != "abc" || info.ExpiresAt != "2026-03-01T10:05:00.000Z" {
		t.Fatalf("unexpected lease info %+v", info)
	}
}

func TestFromSchedulerStatus(t *testing.T) {
	idle := FromSchedulerStatus(scheduler.Status{Running: true, Interval: time.Minute})
	if !idle.Running || idle.IntervalSeconds != 60 || idle.LastSummary != nil || idle.LastRunAt != "" {
		t.Fatalf("unexpected idle status %+v", idle)
	}

	ran := FromSchedulerStatus(scheduler.Status{
		Interval:    time.Minute,
		Runs:        2,
		LastRunAt:   time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		LastSummary: processor.Summary{Processed: 2, Completed: 1, Failed: 1, Duration: 1500 * time.Millisecond},
	})
	if ran.LastSummary == nil {
		t.Fatal("expected last summary")
	}
	if ran.LastSummary.Processed != 2 || ran.LastSummary.Failed != 1 || ran.LastSummary.DurationMS != 1500 {
		t.Fatalf("unexpected summary %+v", ran.LastSummary)
	}
}
