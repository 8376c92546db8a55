package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"polyglot/internal/sqlitedb"
)

// Translations maps language tag to post id for every post in the same
// translation group as postID. A post outside any group that has a language
// maps only to itself.
func (s *Store) Translations(ctx context.Context, postID int64) (map[string]int64, error) {
	var groupID int64
	err := s.db.QueryRowContext(ctx, `SELECT group_id FROM post_translations WHERE post_id = ?`, postID).Scan(&groupID)
	if errors.Is(err, sql.ErrNoRows) {
		lang, langErr := s.PostLanguage(ctx, postID)
		if langErr != nil {
			return nil, langErr
		}
		out := make(map[string]int64)
		if lang != "" {
			out[lang] = postID
		}
		return out, nil
	}
	if err != nil {
		return nil, fmt.Errorf("translation group: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT lang, post_id FROM post_translations WHERE group_id = ?`, groupID)
	if err != nil {
		return nil, fmt.Errorf("translation members: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			lang string
			id   int64
		)
		if err := rows.Scan(&lang, &id); err != nil {
			return nil, err
		}
		out[lang] = id
	}
	return out, rows.Err()
}

// TranslationFor returns the post holding lang in postID's group.
func (s *Store) TranslationFor(ctx context.Context, postID int64, lang string) (int64, bool, error) {
	group, err := s.Translations(ctx, postID)
	if err != nil {
		return 0, false, err
	}
	id, ok := LookupLanguage(group, lang)
	return id, ok, nil
}

// LookupLanguage finds lang in a translation map, ignoring case.
func LookupLanguage(group map[string]int64, lang string) (int64, bool) {
	if id, ok := group[lang]; ok {
		return id, true
	}
	for key, id := range group {
		if strings.EqualFold(key, lang) {
			return id, true
		}
	}
	return 0, false
}

// SaveTranslations makes the given posts one translation group, replacing
// whatever groups they belonged to before. The group keeps the lowest
// existing group id among the members, or gets a fresh one.
func (s *Store) SaveTranslations(ctx context.Context, group map[string]int64) error {
	langs := make([]string, 0, len(group))
	for lang, id := range group {
		if strings.TrimSpace(lang) == "" || id <= 0 {
			continue
		}
		langs = append(langs, lang)
	}
	if len(langs) == 0 {
		return nil
	}
	sort.Strings(langs)

	return sqlitedb.RetryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin translations tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		ids := make([]any, 0, len(langs))
		for _, lang := range langs {
			ids = append(ids, group[lang])
		}
		placeholders := sqlitedb.Placeholders(len(ids))

		var existing sql.NullInt64
		if err := tx.QueryRowContext(ctx,
			`SELECT MIN(group_id) FROM post_translations WHERE post_id IN (`+placeholders+`)`, ids...,
		).Scan(&existing); err != nil {
			return fmt.Errorf("find translation group: %w", err)
		}
		groupID := existing.Int64
		if !existing.Valid {
			if err := tx.QueryRowContext(ctx,
				`SELECT COALESCE(MAX(group_id), 0) + 1 FROM post_translations`,
			).Scan(&groupID); err != nil {
				return fmt.Errorf("allocate translation group: %w", err)
			}
		}

		args := append([]any{groupID}, ids...)
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM post_translations WHERE group_id = ? OR post_id IN (`+placeholders+`)`, args...,
		); err != nil {
			return fmt.Errorf("clear translation group: %w", err)
		}
		for _, lang := range langs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO post_translations (group_id, lang, post_id) VALUES (?, ?, ?)`,
				groupID, lang, group[lang],
			); err != nil {
				return fmt.Errorf("link %s translation: %w", lang, err)
			}
		}
		return tx.Commit()
	})
}
