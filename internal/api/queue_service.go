package api

import (
	"context"
	"slices"

	"polyglot/internal/queue"
)

// QueueReader abstracts queue persistence interactions needed for API queries.
type QueueReader interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	ListByPost(ctx context.Context, postID int64) ([]*queue.Item, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
}

// QueueService exposes read-only queue operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns queue items matching filter, newest first. A post filter reads
// only that post's jobs.
func (s *QueueService) List(ctx context.Context, filter QueueFilter) ([]QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	var (
		items []*queue.Item
		err   error
	)
	if filter.PostID > 0 {
		items, err = s.store.ListByPost(ctx, filter.PostID)
	} else {
		items, err = s.store.List(ctx, filter.Statuses...)
	}
	if err != nil {
		return nil, err
	}
	dtos := FromQueueItems(items)
	if filter.PostID > 0 && len(filter.Statuses) > 0 {
		dtos = slices.DeleteFunc(dtos, func(item QueueItem) bool { return !filter.Matches(item) })
	}
	return SortQueueItemsNewestFirst(dtos), nil
}

// Stats returns queue summary counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single queue item.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromQueueItem(item)
	return &dto, nil
}

// ParseStatuses converts filter strings into queue statuses, skipping
// unknown values.
func ParseStatuses(values []string) []queue.Status {
	var out []queue.Status
	for _, value := range values {
		if status, ok := queue.ParseStatus(value); ok {
			out = append(out, status)
		}
	}
	return out
}
