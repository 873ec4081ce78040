package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/randomly-source/guided-surveys/internal/domain"
	"github.com/randomly-source/guided-surveys/internal/feed"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. Successful session and
// response writes are published to the change-feed hub so live views hear
// about them without re-reading.
type SQLiteStore struct {
	db  *sql.DB
	hub *feed.Hub
}

// NewSQLite creates a new SQLite-backed repository. hub may be nil, in
// which case no change events are published.
func NewSQLite(dbPath string, hub *feed.Hub) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, hub: hub}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		current_page INTEGER NOT NULL DEFAULT 0,
		edit_mode TEXT NOT NULL,
		household_id TEXT,
		status TEXT NOT NULL DEFAULT 'active',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS responses (
		session_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (session_id, question_id)
	);
	CREATE INDEX IF NOT EXISTS idx_responses_session ON responses(session_id);

	CREATE TABLE IF NOT EXISTS household_profiles (
		household_id TEXT NOT NULL,
		question_id TEXT NOT NULL,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (household_id, question_id)
	);
	CREATE INDEX IF NOT EXISTS idx_household_profiles_household ON household_profiles(household_id);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) publish(c feed.Change) {
	if s.hub != nil {
		s.hub.Publish(c)
	}
}

// GetSession retrieves a session by id.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	query := `
		SELECT id, current_page, edit_mode, household_id, status, created_at, updated_at
		FROM sessions WHERE id = ?`

	row := s.db.QueryRowContext(ctx, query, sessionID)

	var sess domain.Session
	var householdID sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&sess.ID, &sess.CurrentPage, &sess.EditMode,
		&householdID, &sess.Status, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.HouseholdID = householdID.String
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.UpdatedAt = time.Unix(updatedAt, 0)

	return &sess, nil
}

// InsertSession creates a new session row.
func (s *SQLiteStore) InsertSession(ctx context.Context, session *domain.Session) error {
	query := `
	INSERT INTO sessions (id, current_page, edit_mode, household_id, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`

	var householdID interface{}
	if session.HouseholdID != "" {
		householdID = session.HouseholdID
	}

	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.CurrentPage, session.EditMode,
		householdID, session.Status,
		session.CreatedAt.Unix(), session.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	s.publish(feed.Change{
		Table:   feed.TableSessions,
		Type:    feed.EventInsert,
		Session: session,
	})
	return nil
}

// UpdateSessionPage sets current_page for a session.
func (s *SQLiteStore) UpdateSessionPage(ctx context.Context, sessionID string, page int) error {
	return s.updateSessionField(ctx, sessionID, "current_page", page)
}

// UpdateSessionEditMode sets edit_mode for a session.
func (s *SQLiteStore) UpdateSessionEditMode(ctx context.Context, sessionID string, mode domain.EditMode) error {
	return s.updateSessionField(ctx, sessionID, "edit_mode", string(mode))
}

// UpdateSessionStatus sets the session lifecycle status.
func (s *SQLiteStore) UpdateSessionStatus(ctx context.Context, sessionID string, status domain.SessionStatus) error {
	return s.updateSessionField(ctx, sessionID, "status", string(status))
}

func (s *SQLiteStore) updateSessionField(ctx context.Context, sessionID, column string, value interface{}) error {
	query := fmt.Sprintf("UPDATE sessions SET %s = ?, updated_at = ? WHERE id = ?", column)

	res, err := s.db.ExecContext(ctx, query, value, time.Now().Unix(), sessionID)
	if err != nil {
		return fmt.Errorf("update session %s: %w", column, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session %s: %w", column, err)
	}
	if affected == 0 {
		return fmt.Errorf("update session %s: session %s not found", column, sessionID)
	}

	// Re-read so the published payload carries the whole row, the way the
	// notification contract promises.
	updated, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("reload session after update: %w", err)
	}
	if updated != nil {
		s.publish(feed.Change{
			Table:   feed.TableSessions,
			Type:    feed.EventUpdate,
			Session: updated,
		})
	}
	return nil
}

// ListResponses retrieves all responses for a session.
func (s *SQLiteStore) ListResponses(ctx context.Context, sessionID string) ([]*domain.Response, error) {
	query := `
		SELECT session_id, question_id, value, updated_at
		FROM responses WHERE session_id = ?`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query responses: %w", err)
	}
	defer rows.Close()

	var out []*domain.Response
	for rows.Next() {
		var resp domain.Response
		var value string
		var updatedAt int64
		if err := rows.Scan(&resp.SessionID, &resp.QuestionID, &value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan response row: %w", err)
		}
		resp.Value = json.RawMessage(value)
		resp.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate responses: %w", err)
	}
	return out, nil
}

// UpsertResponse creates or overwrites a response keyed by
// (session_id, question_id).
func (s *SQLiteStore) UpsertResponse(ctx context.Context, sessionID, questionID string, value json.RawMessage) error {
	existing, err := s.responseExists(ctx, sessionID, questionID)
	if err != nil {
		return err
	}

	now := time.Now()
	query := `
	INSERT INTO responses (session_id, question_id, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(session_id, question_id) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, query, sessionID, questionID, string(value), now.Unix()); err != nil {
		return fmt.Errorf("upsert response: %w", err)
	}

	eventType := feed.EventInsert
	if existing {
		eventType = feed.EventUpdate
	}
	s.publish(feed.Change{
		Table: feed.TableResponses,
		Type:  eventType,
		Response: &domain.Response{
			SessionID:  sessionID,
			QuestionID: questionID,
			Value:      value,
			UpdatedAt:  now,
		},
	})
	return nil
}

func (s *SQLiteStore) responseExists(ctx context.Context, sessionID, questionID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM responses WHERE session_id = ? AND question_id = ?",
		sessionID, questionID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check response existence: %w", err)
	}
	return true, nil
}

// DeleteResponse removes a response row.
func (s *SQLiteStore) DeleteResponse(ctx context.Context, sessionID, questionID string) error {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM responses WHERE session_id = ? AND question_id = ?",
		sessionID, questionID)
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete response: %w", err)
	}
	if affected > 0 {
		s.publish(feed.Change{
			Table: feed.TableResponses,
			Type:  feed.EventDelete,
			OldResponse: &domain.Response{
				SessionID:  sessionID,
				QuestionID: questionID,
			},
		})
	}
	return nil
}

// ListHouseholdEntries retrieves the household profile.
func (s *SQLiteStore) ListHouseholdEntries(ctx context.Context, householdID string) ([]*domain.HouseholdEntry, error) {
	query := `
		SELECT household_id, question_id, value, updated_at
		FROM household_profiles WHERE household_id = ?`

	rows, err := s.db.QueryContext(ctx, query, householdID)
	if err != nil {
		return nil, fmt.Errorf("query household profile: %w", err)
	}
	defer rows.Close()

	var out []*domain.HouseholdEntry
	for rows.Next() {
		var entry domain.HouseholdEntry
		var value string
		var updatedAt int64
		if err := rows.Scan(&entry.HouseholdID, &entry.QuestionID, &value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan household row: %w", err)
		}
		entry.Value = json.RawMessage(value)
		entry.UpdatedAt = time.Unix(updatedAt, 0)
		out = append(out, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate household profile: %w", err)
	}
	return out, nil
}

// UpsertHouseholdEntries bulk-writes household rows inside one transaction.
func (s *SQLiteStore) UpsertHouseholdEntries(ctx context.Context, entries []*domain.HouseholdEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin household upsert: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	query := `
	INSERT INTO household_profiles (household_id, question_id, value, updated_at)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(household_id, question_id) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx, query,
			entry.HouseholdID, entry.QuestionID, string(entry.Value), entry.UpdatedAt.Unix()); err != nil {
			return fmt.Errorf("upsert household entry %s: %w", entry.QuestionID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit household upsert: %w", err)
	}
	return nil
}
