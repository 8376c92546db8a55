package content

import (
	"context"
	"fmt"

	"polyglot/internal/sqlitedb"
)

// Meta returns every metadata entry of a post, keys in first-insert order.
func (s *Store) Meta(ctx context.Context, postID int64) ([]MetaEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT meta_key, meta_value FROM post_meta WHERE post_id = ? ORDER BY id`, postID)
	if err != nil {
		return nil, fmt.Errorf("read post meta: %w", err)
	}
	defer rows.Close()

	var entries []MetaEntry
	index := make(map[string]int)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		pos, ok := index[key]
		if !ok {
			pos = len(entries)
			index[key] = pos
			entries = append(entries, MetaEntry{Key: key})
		}
		entries[pos].Values = append(entries[pos].Values, value)
	}
	return entries, rows.Err()
}

// AddMeta appends one value under key.
func (s *Store) AddMeta(ctx context.Context, postID int64, key, value string) error {
	if _, err := sqlitedb.ExecWithRetry(
		ctx,
		s.db,
		`INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)`,
		postID, key, value,
	); err != nil {
		return fmt.Errorf("add post meta %s: %w", key, err)
	}
	return nil
}

// ReplaceMeta swaps the whole value list stored under key.
func (s *Store) ReplaceMeta(ctx context.Context, postID int64, key string, values []string) error {
	return sqlitedb.RetryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin meta tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM post_meta WHERE post_id = ? AND meta_key = ?`, postID, key); err != nil {
			return fmt.Errorf("delete post meta %s: %w", key, err)
		}
		for _, value := range values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO post_meta (post_id, meta_key, meta_value) VALUES (?, ?, ?)`,
				postID, key, value,
			); err != nil {
				return fmt.Errorf("insert post meta %s: %w", key, err)
			}
		}
		return tx.Commit()
	})
}
