package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a translation job in a transport-friendly format.
type QueueItem struct {
	ID           int64  `json:"id"`
	PostID       int64  `json:"post_id"`
	SourceLang   string `json:"source_lang"`
	TargetLang   string `json:"target_lang"`
	Status       string `json:"status"`
	Prompt       string `json:"prompt,omitempty"`
	Response     string `json:"response,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at,omitempty"`
	ProcessedAt  string `json:"processed_at,omitempty"`
}

// LeaseInfo describes the processing lease holder.
type LeaseInfo struct {
	Owner      string `json:"owner"`
	AcquiredAt string `json:"acquired_at"`
	ExpiresAt  string `json:"expires_at"`
}

// BatchSummary mirrors the outcome of one processing run.
type BatchSummary struct {
	LockHeld   bool    `json:"lock_held"`
	Processed  int     `json:"processed"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	Aborted    bool    `json:"aborted"`
	DurationMS float64 `json:"duration_ms"`
}

// SchedulerStatus reports the background trigger state.
type SchedulerStatus struct {
	Running         bool          `json:"running"`
	IntervalSeconds float64       `json:"interval_seconds"`
	Runs            int64         `json:"runs"`
	LastRunAt       string        `json:"last_run_at,omitempty"`
	LastError       string        `json:"last_error,omitempty"`
	LastSummary     *BatchSummary `json:"last_summary,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running       bool             `json:"running"`
	PID           int              `json:"pid"`
	QueueDBPath   string           `json:"queue_db_path"`
	ContentDBPath string           `json:"content_db_path"`
	LockFilePath  string           `json:"lock_file_path"`
	Model         string           `json:"model"`
	LLMConfigured bool             `json:"llm_configured"`
	QueueStats    map[string]int   `json:"queue_stats"`
	Lease         *LeaseInfo       `json:"lease,omitempty"`
	Scheduler     *SchedulerStatus `json:"scheduler,omitempty"`
}

// QueueStatsResponse provides a normalized queue stats payload.
type QueueStatsResponse struct {
	Counts map[string]int `json:"counts"`
}

// QueueListResponse wraps a collection of queue items for API responses.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single queue item.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// EnqueueRequest asks for one post to be translated.
type EnqueueRequest struct {
	PostID     int64  `json:"post_id" validate:"required,gt=0"`
	SourceLang string `json:"source_lang" validate:"required,langtag"`
	TargetLang string `json:"target_lang" validate:"required,langtag"`
}

// EnqueueResponse acknowledges a queued translation.
type EnqueueResponse struct {
	QueueID int64  `json:"queue_id"`
	Message string `json:"message"`
}

// TranslationStatus is the polling view of one job.
type TranslationStatus struct {
	QueueID           int64  `json:"queue_id"`
	Status            string `json:"status"`
	Message           string `json:"message"`
	SameItemUpdated   bool   `json:"same_item_updated,omitempty"`
	TranslatedItemRef int64  `json:"translated_item_ref,omitempty"`
}

// Terminal reports whether polling can stop.
func (s TranslationStatus) Terminal() bool {
	return s.Status == "completed" || s.Status == "failed"
}

// LLMTestResponse reports a connection test.
type LLMTestResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Model   string `json:"model"`
}

// ProcessResponse reports a manual processing run.
type ProcessResponse struct {
	Summary BatchSummary `json:"summary"`
	Holder  *LeaseInfo   `json:"holder,omitempty"`
}

// ClearResponse reports how many queue rows were removed.
type ClearResponse struct {
	Removed int64 `json:"removed"`
}

// ErrorResponse is the body of every non-2xx API reply.
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}
