package content

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"polyglot/internal/config"
	"polyglot/internal/sqlitedb"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	databaseName    = "content.db"
	migrationsTable = "content_migrations"
)

// ErrPostNotFound reports a post id with no row.
var ErrPostNotFound = errors.New("post not found")

// Store persists content in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the content database in the data dir.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(context.Background(), filepath.Join(cfg.Paths.DataDir, databaseName))
}

// OpenPath opens the content database at an explicit location.
func OpenPath(ctx context.Context, dbPath string) (*Store, error) {
	db, err := sqlitedb.Open(ctx, dbPath, sqlitedb.Schema{
		FS:    migrationFS,
		Dir:   "migrations",
		Table: migrationsTable,
	}, slog.Default())
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: dbPath}, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

const postColumns = "id, title, content, status, type, author_id, excerpt, parent_id, menu_order, comment_status, ping_status, language, created_at, updated_at"

func scanPost(scanner interface{ Scan(dest ...any) error }) (*Post, error) {
	var (
		post       Post
		language   sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.Status,
		&post.Type,
		&post.AuthorID,
		&post.Excerpt,
		&post.ParentID,
		&post.MenuOrder,
		&post.CommentStatus,
		&post.PingStatus,
		&language,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	post.Language = language.String
	if created, err := sqlitedb.ParseTime(createdRaw); err == nil {
		post.CreatedAt = created
	}
	if updated, err := sqlitedb.ParseTime(updatedRaw); err == nil {
		post.UpdatedAt = updated
	}
	return &post, nil
}

// CreatePost inserts a post and returns its id. Empty editorial fields take
// the usual CMS defaults.
func (s *Store) CreatePost(ctx context.Context, post Post) (int64, error) {
	if post.Status == "" {
		post.Status = "draft"
	}
	if post.Type == "" {
		post.Type = "post"
	}
	if post.CommentStatus == "" {
		post.CommentStatus = "open"
	}
	if post.PingStatus == "" {
		post.PingStatus = "open"
	}
	now := sqlitedb.FormatTime(time.Now())
	res, err := sqlitedb.ExecWithRetry(
		ctx,
		s.db,
		`INSERT INTO posts (
            title, content, status, type, author_id, excerpt, parent_id, menu_order,
            comment_status, ping_status, language, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		post.Title,
		post.Content,
		post.Status,
		post.Type,
		post.AuthorID,
		post.Excerpt,
		post.ParentID,
		post.MenuOrder,
		post.CommentStatus,
		post.PingStatus,
		sqlitedb.NullableString(strings.TrimSpace(post.Language)),
		now,
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetPost returns the post or (nil, nil) when it does not exist.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// ListPosts returns every post ordered by id.
func (s *Store) ListPosts(ctx context.Context) ([]*Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+postColumns+` FROM posts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// UpdateContent overwrites the body of a post.
func (s *Store) UpdateContent(ctx context.Context, id int64, body string) error {
	res, err := sqlitedb.ExecWithRetry(
		ctx,
		s.db,
		`UPDATE posts SET content = ?, updated_at = ? WHERE id = ?`,
		body,
		sqlitedb.FormatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update post content: %w", err)
	}
	return requireAffected(res, id)
}

// PostLanguage returns the post's language tag, empty when unset.
func (s *Store) PostLanguage(ctx context.Context, id int64) (string, error) {
	var language sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT language FROM posts WHERE id = ?`, id).Scan(&language)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}
	if err != nil {
		return "", fmt.Errorf("post language: %w", err)
	}
	return language.String, nil
}

// SetPostLanguage assigns a language tag to a post.
func (s *Store) SetPostLanguage(ctx context.Context, id int64, lang string) error {
	res, err := sqlitedb.ExecWithRetry(
		ctx,
		s.db,
		`UPDATE posts SET language = ?, updated_at = ? WHERE id = ?`,
		sqlitedb.NullableString(strings.TrimSpace(lang)),
		sqlitedb.FormatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("set post language: %w", err)
	}
	return requireAffected(res, id)
}

func requireAffected(res sql.Result, id int64) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrPostNotFound, id)
	}
	return nil
}
