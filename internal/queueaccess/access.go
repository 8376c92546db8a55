package queueaccess

import (
	"context"
	"fmt"

	"polyglot/internal/api"
	"polyglot/internal/ipc"
	"polyglot/internal/queue"
)

// ClearScope selects which queue items a clear removes.
type ClearScope string

const (
	ClearAll       ClearScope = "all"
	ClearCompleted ClearScope = ClearScope(queue.StatusCompleted)
	ClearFailed    ClearScope = ClearScope(queue.StatusFailed)
)

// Filter narrows a listing. PostID 0 lists every post.
type Filter struct {
	Statuses []string
	PostID   int64
}

// Access is the queue surface shared by the CLI whether the daemon is up or
// the database is opened directly.
type Access interface {
	Stats(ctx context.Context) (map[string]int, error)
	List(ctx context.Context, filter Filter) ([]api.QueueItem, error)
	Describe(ctx context.Context, id int64) (*api.QueueItem, error)
	Clear(ctx context.Context, scope ClearScope) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
}

// NewIPCAccess routes queue calls through the running daemon.
func NewIPCAccess(client *ipc.Client) Access {
	return &daemonAccess{client: client}
}

// NewStoreAccess reads and writes the queue database directly.
func NewStoreAccess(store *queue.Store) Access {
	return &storeAccess{store: store, service: api.NewQueueService(store)}
}

type daemonAccess struct {
	client *ipc.Client
}

func (a *daemonAccess) Stats(context.Context) (map[string]int, error) {
	resp, err := a.client.Status()
	if err != nil {
		return nil, err
	}
	return resp.QueueStats, nil
}

func (a *daemonAccess) List(_ context.Context, filter Filter) ([]api.QueueItem, error) {
	var (
		resp *ipc.QueueListResponse
		err  error
	)
	if filter.PostID > 0 {
		resp, err = a.client.PostJobs(filter.PostID, filter.Statuses)
	} else {
		resp, err = a.client.QueueList(filter.Statuses)
	}
	if err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (a *daemonAccess) Describe(_ context.Context, id int64) (*api.QueueItem, error) {
	resp, err := a.client.QueueDescribe(id)
	if err != nil {
		return nil, err
	}
	if resp == nil || !resp.Found {
		return nil, nil
	}
	return &resp.Item, nil
}

func (a *daemonAccess) Clear(_ context.Context, scope ClearScope) (int64, error) {
	switch scope {
	case ClearAll, "":
		resp, err := a.client.QueueClear()
		if err != nil {
			return 0, err
		}
		return resp.Removed, nil
	case ClearCompleted:
		resp, err := a.client.QueueClearCompleted()
		if err != nil {
			return 0, err
		}
		return resp.Removed, nil
	case ClearFailed:
		resp, err := a.client.QueueClearFailed()
		if err != nil {
			return 0, err
		}
		return resp.Removed, nil
	default:
		return 0, fmt.Errorf("unknown clear scope %q", scope)
	}
}

func (a *daemonAccess) Remove(_ context.Context, ids []int64) (int64, error) {
	resp, err := a.client.QueueRemove(ids)
	if err != nil {
		return 0, err
	}
	return resp.Removed, nil
}

type storeAccess struct {
	store   *queue.Store
	service *api.QueueService
}

func (a *storeAccess) Stats(ctx context.Context) (map[string]int, error) {
	return a.service.Stats(ctx)
}

func (a *storeAccess) List(ctx context.Context, filter Filter) ([]api.QueueItem, error) {
	return a.service.List(ctx, api.NewQueueFilter(filter.Statuses, filter.PostID))
}

func (a *storeAccess) Describe(ctx context.Context, id int64) (*api.QueueItem, error) {
	return a.service.Describe(ctx, id)
}

func (a *storeAccess) Clear(ctx context.Context, scope ClearScope) (int64, error) {
	switch scope {
	case ClearAll, "":
		return a.store.Clear(ctx)
	case ClearCompleted:
		return a.store.ClearCompleted(ctx)
	case ClearFailed:
		return a.store.ClearFailed(ctx)
	default:
		return 0, fmt.Errorf("unknown clear scope %q", scope)
	}
}

// Remove deletes ids one by one and reports how many existed.
func (a *storeAccess) Remove(ctx context.Context, ids []int64) (int64, error) {
	var count int64
	for _, id := range ids {
		removed, err := a.store.Remove(ctx, id)
		if err != nil {
			return count, err
		}
		if removed {
			count++
		}
	}
	return count, nil
}
