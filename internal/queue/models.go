package queue

import (
	"fmt"
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

type statusTransition struct {
	from Status
	to   Status
}

var allowedTransitions = map[statusTransition]struct{}{
	{from: StatusPending, to: StatusProcessing}:   {},
	{from: StatusProcessing, to: StatusCompleted}: {},
	{from: StatusProcessing, to: StatusFailed}:    {},
}

// CanTransition reports whether an item may move from one status to another.
// Terminal states have no outgoing transitions.
func CanTransition(from, to Status) bool {
	_, ok := allowedTransitions[statusTransition{from: from, to: to}]
	return ok
}

// IsTerminal reports whether the status is completed or failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// AllStatuses returns every known status in lifecycle order.
func AllStatuses() []Status {
	out := make([]Status, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// ParseStatus converts a string into a Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := statusSet[normalized]; ok {
		return normalized, true
	}
	return "", false
}

// HealthSummary describes aggregated queue counts per lifecycle state.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Completed  int
}

// NewItem carries the fields supplied when a job is enqueued.
type NewItem struct {
	PostID     int64
	SourceLang string
	TargetLang string
	Prompt     string
}

// Item represents a translation job persisted in SQLite.
type Item struct {
	ID           int64
	PostID       int64
	SourceLang   string
	TargetLang   string
	Status       Status
	Prompt       string
	Response     string
	ErrorMessage string
	CreatedAt    time.Time
	ProcessedAt  *time.Time
}

// String renders a short identifier for logs.
func (i Item) String() string {
	return fmt.Sprintf("#%d post=%d %s->%s", i.ID, i.PostID, i.SourceLang, i.TargetLang)
}

// IsTerminal reports whether the item has finished processing.
func (i Item) IsTerminal() bool {
	return i.Status.IsTerminal()
}
