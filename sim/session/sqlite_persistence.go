package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rodneysantos/toy-robot/sim/engine"
	"github.com/rodneysantos/toy-robot/sim/service"

	// SQLite driver
	_ "modernc.org/sqlite"
)

const sessionsSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	id               TEXT PRIMARY KEY COLLATE NOCASE,
	config_name      TEXT NOT NULL,
	table_json       TEXT NOT NULL,
	created_at       TEXT NOT NULL,
	last_accessed_at TEXT NOT NULL,
	robot_json       TEXT NOT NULL
)`

// SQLitePersistence implements SessionPersistence on a SQLite database
type SQLitePersistence struct {
	db      *sql.DB
	path    string
	timeout time.Duration
}

// NewSQLitePersistence opens (or creates) the database at path and ensures
// the sessions table exists. Use ":memory:" for a throwaway store.
func NewSQLitePersistence(path string) (*SQLitePersistence, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY
	db.SetMaxOpenConns(1)

	s := &SQLitePersistence{db: db, path: path, timeout: 5 * time.Second}

	ctx, cancel := s.context()
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	for _, stmt := range []string{"PRAGMA journal_mode = WAL", "PRAGMA busy_timeout = 5000", sessionsSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
	}

	return s, nil
}

// Close closes the database connection
func (s *SQLitePersistence) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLitePersistence) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

// Save upserts a session row
func (s *SQLitePersistence) Save(session *service.Session) error {
	if session == nil {
		return fmt.Errorf("session cannot be nil")
	}
	if session.ID == "" {
		return ErrInvalidSessionID
	}

	data := toPersisted(session)
	tableJSON, err := json.Marshal(data.Table)
	if err != nil {
		return fmt.Errorf("failed to marshal table config: %w", err)
	}
	robotJSON, err := json.Marshal(data.Robot)
	if err != nil {
		return fmt.Errorf("failed to marshal robot: %w", err)
	}

	query := `
		INSERT INTO sessions (id, config_name, table_json, created_at, last_accessed_at, robot_json)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			config_name = excluded.config_name,
			table_json = excluded.table_json,
			last_accessed_at = excluded.last_accessed_at,
			robot_json = excluded.robot_json
	`

	ctx, cancel := s.context()
	defer cancel()

	_, err = s.db.ExecContext(ctx, query,
		data.ID,
		data.ConfigID,
		string(tableJSON),
		data.CreatedAt.UTC().Format(time.RFC3339Nano),
		data.LastAccessedAt.UTC().Format(time.RFC3339Nano),
		string(robotJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Load reads a session row and rebuilds the session
func (s *SQLitePersistence) Load(id string) (*service.Session, error) {
	query := `
		SELECT id, config_name, table_json, created_at, last_accessed_at, robot_json
		FROM sessions
		WHERE id = ?
	`

	ctx, cancel := s.context()
	defer cancel()

	var (
		data                    PersistedSessionData
		tableJSON, robotJSON    string
		createdAt, lastAccessed string
	)
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&data.ID,
		&data.ConfigID,
		&tableJSON,
		&createdAt,
		&lastAccessed,
		&robotJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var table engine.TableConfig
	if err := json.Unmarshal([]byte(tableJSON), &table); err != nil {
		return nil, fmt.Errorf("failed to unmarshal table config: %w", err)
	}
	data.Table = &table
	if err := json.Unmarshal([]byte(robotJSON), &data.Robot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal robot: %w", err)
	}
	if data.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if data.LastAccessedAt, err = time.Parse(time.RFC3339Nano, lastAccessed); err != nil {
		return nil, fmt.Errorf("failed to parse last_accessed_at: %w", err)
	}

	return fromPersisted(data)
}

// Delete removes a session row
func (s *SQLitePersistence) Delete(id string) error {
	ctx, cancel := s.context()
	defer cancel()

	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// ListAll returns all persisted session IDs
func (s *SQLitePersistence) ListAll() ([]string, error) {
	ctx, cancel := s.context()
	defer cancel()

	rows, err := s.db.QueryContext(ctx, "SELECT id FROM sessions ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan session id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Exists checks if a session row exists
func (s *SQLitePersistence) Exists(id string) bool {
	ctx, cancel := s.context()
	defer cancel()

	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM sessions WHERE id = ?", id).Scan(&n)
	return err == nil && n > 0
}
