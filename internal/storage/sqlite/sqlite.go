package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"dashfeed/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its settings in package globals.
var migrateMu sync.Mutex

func init() {
	storage.RegisterFactory(storage.TypeSQLite, New)
}

type SQLiteStorage struct {
	conn   *sql.DB
	logger *slog.Logger
}

func New(cfg storage.Config, logger *slog.Logger) (storage.ResponseStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite cache: path is required")
	}

	logger.Debug("Initializing SQLite cache", "path", cfg.Path)

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_busy_timeout=5000", cfg.Path)
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(conn, logger); err != nil {
		conn.Close()
		return nil, err
	}

	s := &SQLiteStorage{conn: conn, logger: logger}

	if cfg.TTL > 0 {
		if err := s.DeleteOlderThan(context.Background(), cfg.TTL); err != nil {
			logger.Warn("Failed to prune HTTP cache", "error", err)
		}
	}

	return s, nil
}

func runMigrations(conn *sql.DB, logger *slog.Logger) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(gooseLogger{logger: logger})

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *SQLiteStorage) Get(key string) ([]byte, bool) {
	var response []byte
	err := s.conn.QueryRow(`SELECT response FROM http_responses WHERE key = ?`, key).Scan(&response)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Debug("HTTP cache read failed", "key", key, "error", err)
		}
		return nil, false
	}
	return response, true
}

func (s *SQLiteStorage) Set(key string, response []byte) {
	query := `
		INSERT INTO http_responses (key, response, stored_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET response = excluded.response, stored_at = excluded.stored_at
	`

	if _, err := s.conn.Exec(query, key, response, time.Now().Unix()); err != nil {
		s.logger.Debug("HTTP cache write failed", "key", key, "error", err)
	}
}

func (s *SQLiteStorage) Delete(key string) {
	if _, err := s.conn.Exec(`DELETE FROM http_responses WHERE key = ?`, key); err != nil {
		s.logger.Debug("HTTP cache delete failed", "key", key, "error", err)
	}
}

func (s *SQLiteStorage) DeleteOlderThan(ctx context.Context, age time.Duration) error {
	cutoff := time.Now().Add(-age)

	result, err := s.conn.ExecContext(ctx, `DELETE FROM http_responses WHERE stored_at < ?`, cutoff.Unix())
	if err != nil {
		return fmt.Errorf("failed to delete old responses: %w", err)
	}

	if rows, err := result.RowsAffected(); err == nil && rows > 0 {
		s.logger.Debug("Pruned HTTP cache", "count", rows, "cutoff", cutoff.Format(time.RFC3339))
	}

	return nil
}

func (s *SQLiteStorage) Close(ctx context.Context) error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

type gooseLogger struct {
	logger *slog.Logger
}

func (g gooseLogger) Printf(format string, v ...interface{}) {
	g.logger.Debug(fmt.Sprintf(format, v...))
}

func (g gooseLogger) Fatalf(format string, v ...interface{}) {
	g.logger.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}
