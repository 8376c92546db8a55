package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func call[Resp any](c *Client, method string, req any) (*Resp, error) {
	var resp Resp
	if err := c.client.Call(ServiceName+"."+method, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	return call[StartResponse](c, "Start", StartRequest{})
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	return call[StopResponse](c, "Stop", StopRequest{})
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	return call[StatusResponse](c, "Status", StatusRequest{})
}

// Enqueue queues a translation request.
func (c *Client) Enqueue(req EnqueueRequest) (*EnqueueResponse, error) {
	return call[EnqueueResponse](c, "Enqueue", req)
}

// TranslationStatus polls one queued translation.
func (c *Client) TranslationStatus(id int64) (*TranslationStatusResponse, error) {
	return call[TranslationStatusResponse](c, "TranslationStatus", TranslationStatusRequest{ID: id})
}

// Process runs one queue batch inside the daemon.
func (c *Client) Process() (*ProcessResponse, error) {
	return call[ProcessResponse](c, "Process", ProcessRequest{})
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	return call[DatabaseHealthResponse](c, "DatabaseHealth", DatabaseHealthRequest{})
}

// TestLLM runs the translation API connection test via the daemon.
func (c *Client) TestLLM() (*TestLLMResponse, error) {
	return call[TestLLMResponse](c, "TestLLM", TestLLMRequest{})
}

// TestNotification triggers a notification test via the daemon.
func (c *Client) TestNotification() (*TestNotificationResponse, error) {
	return call[TestNotificationResponse](c, "TestNotification", TestNotificationRequest{})
}

// QueueList returns queue items optionally filtered by statuses.
func (c *Client) QueueList(statuses []string) (*QueueListResponse, error) {
	return call[QueueListResponse](c, "QueueList", QueueListRequest{Statuses: statuses})
}

// PostJobs returns the queue items recorded for one post.
func (c *Client) PostJobs(postID int64, statuses []string) (*QueueListResponse, error) {
	return call[QueueListResponse](c, "QueueList", QueueListRequest{Statuses: statuses, PostID: postID})
}

// QueueDescribe returns details for a single queue item.
func (c *Client) QueueDescribe(id int64) (*QueueDescribeResponse, error) {
	return call[QueueDescribeResponse](c, "QueueDescribe", QueueDescribeRequest{ID: id})
}

// QueueClear removes all non-processing items from the queue.
func (c *Client) QueueClear() (*QueueClearResponse, error) {
	return call[QueueClearResponse](c, "QueueClear", QueueClearRequest{})
}

// QueueClearCompleted removes only completed items from the queue.
func (c *Client) QueueClearCompleted() (*QueueClearCompletedResponse, error) {
	return call[QueueClearCompletedResponse](c, "QueueClearCompleted", QueueClearCompletedRequest{})
}

// QueueClearFailed removes failed items from the queue.
func (c *Client) QueueClearFailed() (*QueueClearFailedResponse, error) {
	return call[QueueClearFailedResponse](c, "QueueClearFailed", QueueClearFailedRequest{})
}

// QueueRemove removes specific items by id.
func (c *Client) QueueRemove(ids []int64) (*QueueRemoveResponse, error) {
	return call[QueueRemoveResponse](c, "QueueRemove", QueueRemoveRequest{IDs: ids})
}

// QueueHealth returns queue diagnostics.
func (c *Client) QueueHealth() (*QueueHealthResponse, error) {
	return call[QueueHealthResponse](c, "QueueHealth", QueueHealthRequest{})
}
