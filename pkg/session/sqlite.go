package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/calrock27/genflow/pkg/models"
)

// SQLiteStore persists chat histories across process restarts. One row
// per turn, ordered by an insertion sequence within each session key.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteStore opens (or creates) the session database under dataDir.
func NewSQLiteStore(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, "sessions.db")

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open session database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping session database: %w", err)
	}

	store := &SQLiteStore{db: db}

	if err := store.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize session database: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS turns (
		session_key TEXT NOT NULL,
		seq INTEGER NOT NULL,
		role TEXT NOT NULL,
		parts TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		PRIMARY KEY (session_key, seq)
	);
	CREATE INDEX IF NOT EXISTS idx_turns_session ON turns(session_key);
	`

	_, err := s.db.Exec(schema)

	return err
}

// History implements Store.
func (s *SQLiteStore) History(key string) ([]models.ChatTurn, error) {
	rows, err := s.db.Query(
		"SELECT role, parts FROM turns WHERE session_key = ? ORDER BY seq", key)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %q: %w", key, err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var turns []models.ChatTurn

	for rows.Next() {
		var (
			role  string
			parts string
		)

		if err := rows.Scan(&role, &parts); err != nil {
			return nil, fmt.Errorf("failed to scan session %q: %w", key, err)
		}

		turn := models.ChatTurn{Role: role}
		if err := json.Unmarshal([]byte(parts), &turn.Parts); err != nil {
			return nil, fmt.Errorf("corrupt turn in session %q: %w", key, err)
		}

		turns = append(turns, turn)
	}

	return turns, rows.Err()
}

// Append implements Store.
func (s *SQLiteStore) Append(key string, turns ...models.ChatTurn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to append to session %q: %w", key, err)
	}

	var next int
	if err := tx.QueryRow(
		"SELECT COALESCE(MAX(seq), -1) + 1 FROM turns WHERE session_key = ?", key,
	).Scan(&next); err != nil {
		_ = tx.Rollback()

		return fmt.Errorf("failed to sequence session %q: %w", key, err)
	}

	now := time.Now().UTC()

	for i, turn := range turns {
		parts, err := json.Marshal(turn.Parts)
		if err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to encode turn for session %q: %w", key, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO turns (session_key, seq, role, parts, created_at) VALUES (?, ?, ?, ?, ?)",
			key, next+i, turn.Role, string(parts), now,
		); err != nil {
			_ = tx.Rollback()

			return fmt.Errorf("failed to store turn for session %q: %w", key, err)
		}
	}

	return tx.Commit()
}

// Reset implements Store.
func (s *SQLiteStore) Reset(key string) error {
	_, err := s.db.Exec("DELETE FROM turns WHERE session_key = ?", key)
	if err != nil {
		return fmt.Errorf("failed to reset session %q: %w", key, err)
	}

	return nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
