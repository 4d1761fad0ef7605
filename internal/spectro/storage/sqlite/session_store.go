package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session describes one analysis pass over a spectrum: where the counts
// came from and the axis they were binned on.
type Session struct {
	SessionID string  `json:"session_id"`
	RunNumber int     `json:"run_number"`
	Source    string  `json:"source"`
	Bins      int     `json:"bins"`
	RangeLo   float64 `json:"range_lo"`
	RangeHi   float64 `json:"range_hi"`
	CreatedAt int64   `json:"created_at"`
}

// SessionStore provides persistence for analysis sessions.
type SessionStore struct {
	db *sql.DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

// Save persists a session. If SessionID is empty, a UUID is generated.
// Re-saving an existing session updates its descriptor but keeps the
// original created_at, so re-running an analysis does not duplicate rows.
func (s *SessionStore) Save(sess *Session) error {
	if sess.SessionID == "" {
		sess.SessionID = uuid.New().String()
	}
	if sess.CreatedAt == 0 {
		sess.CreatedAt = time.Now().UnixNano()
	}

	query := `
		INSERT INTO sessions (
			session_id, run_number, source, bins, range_lo, range_hi, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			run_number = excluded.run_number,
			source = excluded.source,
			bins = excluded.bins,
			range_lo = excluded.range_lo,
			range_hi = excluded.range_hi
	`

	return retryOnBusy(func() error {
		_, err := s.db.Exec(query,
			sess.SessionID,
			sess.RunNumber,
			sess.Source,
			sess.Bins,
			sess.RangeLo,
			sess.RangeHi,
			sess.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	})
}

// Get retrieves a session by ID.
func (s *SessionStore) Get(sessionID string) (*Session, error) {
	query := `
		SELECT session_id, run_number, source, bins, range_lo, range_hi, created_at
		FROM sessions
		WHERE session_id = ?
	`

	var sess Session
	err := s.db.QueryRow(query, sessionID).Scan(
		&sess.SessionID,
		&sess.RunNumber,
		&sess.Source,
		&sess.Bins,
		&sess.RangeLo,
		&sess.RangeHi,
		&sess.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	return &sess, nil
}

// List returns sessions ordered by creation time descending. A limit of
// zero or less falls back to 100.
func (s *SessionStore) List(limit int) ([]*Session, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT session_id, run_number, source, bins, range_lo, range_hi, created_at
		FROM sessions
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var sess Session
		err := rows.Scan(
			&sess.SessionID,
			&sess.RunNumber,
			&sess.Source,
			&sess.Bins,
			&sess.RangeLo,
			&sess.RangeHi,
			&sess.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, &sess)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions rows: %w", err)
	}

	return sessions, nil
}

// Delete removes a session by ID. Fits recorded against it cascade away
// with it.
func (s *SessionStore) Delete(sessionID string) error {
	return retryOnBusy(func() error {
		result, err := s.db.Exec(`DELETE FROM sessions WHERE session_id = ?`, sessionID)
		if err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("session not found: %s", sessionID)
		}
		return nil
	})
}
