package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"polyglot/internal/sqlitedb"
)

// CreateTerm inserts a taxonomy term and returns its id.
func (s *Store) CreateTerm(ctx context.Context, term Term) (int64, error) {
	term.Taxonomy = strings.TrimSpace(term.Taxonomy)
	term.Name = strings.TrimSpace(term.Name)
	if term.Taxonomy == "" || term.Name == "" {
		return 0, errors.New("create term: taxonomy and name required")
	}
	if term.Slug == "" {
		term.Slug = strings.ReplaceAll(strings.ToLower(term.Name), " ", "-")
	}
	var group any
	if term.GroupID > 0 {
		group = term.GroupID
	}
	res, err := sqlitedb.ExecWithRetry(
		ctx,
		s.db,
		`INSERT INTO terms (taxonomy, name, slug, language, group_id) VALUES (?, ?, ?, ?, ?)`,
		term.Taxonomy,
		term.Name,
		term.Slug,
		sqlitedb.NullableString(strings.TrimSpace(term.Language)),
		group,
	)
	if err != nil {
		return 0, fmt.Errorf("insert term: %w", err)
	}
	return res.LastInsertId()
}

// LinkTerms marks the given terms as translations of each other.
func (s *Store) LinkTerms(ctx context.Context, termIDs ...int64) error {
	if len(termIDs) < 2 {
		return nil
	}
	group := termIDs[0]
	for _, id := range termIDs[1:] {
		if id < group {
			group = id
		}
	}
	args := make([]any, 0, len(termIDs)+1)
	args = append(args, group)
	for _, id := range termIDs {
		args = append(args, id)
	}
	if _, err := sqlitedb.ExecWithRetry(
		ctx,
		s.db,
		`UPDATE terms SET group_id = ? WHERE id IN (`+sqlitedb.Placeholders(len(termIDs))+`)`,
		args...,
	); err != nil {
		return fmt.Errorf("link terms: %w", err)
	}
	return nil
}

// GetTerm returns a term or (nil, nil).
func (s *Store) GetTerm(ctx context.Context, id int64) (*Term, error) {
	var (
		term     Term
		language sql.NullString
		group    sql.NullInt64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, taxonomy, name, slug, language, group_id FROM terms WHERE id = ?`, id,
	).Scan(&term.ID, &term.Taxonomy, &term.Name, &term.Slug, &language, &group)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get term: %w", err)
	}
	term.Language = language.String
	term.GroupID = group.Int64
	return &term, nil
}

// TranslatedTerm returns the equivalent of termID in lang. A term already in
// lang is its own equivalent.
func (s *Store) TranslatedTerm(ctx context.Context, termID int64, lang string) (int64, bool, error) {
	term, err := s.GetTerm(ctx, termID)
	if err != nil || term == nil {
		return 0, false, err
	}
	if strings.EqualFold(term.Language, lang) {
		return term.ID, true, nil
	}
	if term.GroupID == 0 {
		return 0, false, nil
	}
	var id int64
	err = s.db.QueryRowContext(ctx,
		`SELECT id FROM terms WHERE group_id = ? AND lower(language) = lower(?) ORDER BY id LIMIT 1`,
		term.GroupID, lang,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("translated term: %w", err)
	}
	return id, true, nil
}

// AddPostTerm attaches a term to a post.
func (s *Store) AddPostTerm(ctx context.Context, postID, termID int64) error {
	if _, err := sqlitedb.ExecWithRetry(
		ctx,
		s.db,
		`INSERT OR IGNORE INTO term_relationships (post_id, term_id) VALUES (?, ?)`,
		postID, termID,
	); err != nil {
		return fmt.Errorf("add post term: %w", err)
	}
	return nil
}

// PostTerms returns the post's terms grouped by taxonomy, taxonomies sorted
// by name.
func (s *Store) PostTerms(ctx context.Context, postID int64) ([]TaxonomyTerms, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT t.taxonomy, t.id FROM term_relationships r
        JOIN terms t ON t.id = r.term_id
        WHERE r.post_id = ?
        ORDER BY t.taxonomy, t.id`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("post terms: %w", err)
	}
	defer rows.Close()

	var out []TaxonomyTerms
	for rows.Next() {
		var (
			taxonomy string
			id       int64
		)
		if err := rows.Scan(&taxonomy, &id); err != nil {
			return nil, err
		}
		if n := len(out); n == 0 || out[n-1].Taxonomy != taxonomy {
			out = append(out, TaxonomyTerms{Taxonomy: taxonomy})
		}
		out[len(out)-1].TermIDs = append(out[len(out)-1].TermIDs, id)
	}
	return out, rows.Err()
}

// SetPostTerms replaces the post's terms in one taxonomy.
func (s *Store) SetPostTerms(ctx context.Context, postID int64, taxonomy string, termIDs []int64) error {
	return sqlitedb.RetryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin terms tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx,
			`DELETE FROM term_relationships
            WHERE post_id = ? AND term_id IN (SELECT id FROM terms WHERE taxonomy = ?)`,
			postID, taxonomy,
		); err != nil {
			return fmt.Errorf("clear %s terms: %w", taxonomy, err)
		}
		for _, id := range termIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO term_relationships (post_id, term_id) VALUES (?, ?)`,
				postID, id,
			); err != nil {
				return fmt.Errorf("set %s term %d: %w", taxonomy, id, err)
			}
		}
		return tx.Commit()
	})
}
