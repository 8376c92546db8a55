package queue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"polyglot/internal/sqlitedb"
)

// MarkProcessing moves a pending item to processing and stamps processed_at.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusPending, StatusProcessing,
		`processed_at = ?`,
		sqlitedb.FormatTime(time.Now()),
	)
}

// MarkCompleted records a successful translation. The response must be
// non-empty; completed rows never carry an error message.
func (s *Store) MarkCompleted(ctx context.Context, id int64, response string) error {
	if strings.TrimSpace(response) == "" {
		return fmt.Errorf("mark completed %d: response required", id)
	}
	return s.transition(ctx, id, StatusProcessing, StatusCompleted,
		`response = ?, error_message = NULL, processed_at = ?`,
		response,
		sqlitedb.FormatTime(time.Now()),
	)
}

// MarkFailed records a failed translation. Failed rows never carry a
// response.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "Unknown error"
	}
	return s.transition(ctx, id, StatusProcessing, StatusFailed,
		`error_message = ?, response = NULL, processed_at = ?`,
		message,
		sqlitedb.FormatTime(time.Now()),
	)
}

// transition applies a compare-and-set status change. Zero affected rows
// means another writer moved the item first or it no longer exists.
func (s *Store) transition(ctx context.Context, id int64, from, to Status, setClause string, args ...any) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	query := `UPDATE queue_items SET status = ?, ` + setClause + ` WHERE id = ? AND status = ?`
	params := make([]any, 0, len(args)+3)
	params = append(params, to)
	params = append(params, args...)
	params = append(params, id, from)

	res, err := s.execWithRetry(ctx, query, params...)
	if err != nil {
		return fmt.Errorf("mark %s %d: %w", to, id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: item %d is not %s", ErrInvalidTransition, id, from)
	}
	return nil
}
