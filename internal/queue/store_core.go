package queue

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"path/filepath"

	"polyglot/internal/config"
	"polyglot/internal/sqlitedb"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	databaseName    = "queue.db"
	migrationsTable = "queue_migrations"
)

// Store manages queue persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the queue database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(context.Background(), filepath.Join(cfg.Paths.DataDir, databaseName))
}

// OpenPath opens the queue database at an explicit location.
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

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return sqlitedb.ExecWithRetry(ctx, s.db, query, args...)
}
