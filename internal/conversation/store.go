// Package conversation archives tutoring transcripts in SQLite. The archive
// is write-mostly: live context always comes from the in-memory session.
package conversation

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type Entry struct {
	ID        int64
	SessionID string
	Mode      string
	Role      string
	Content   string
	CreatedAt time.Time
}

// SessionInfo summarizes one archived session.
type SessionInfo struct {
	SessionID string
	Messages  int
	LastAt    time.Time
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS transcript (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL,
    mode TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcript_session ON transcript(session_id, id);
CREATE INDEX IF NOT EXISTS idx_transcript_created ON transcript(created_at);
`

func NewStore(db *sql.DB) (*Store, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create transcript schema: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// AppendTurn archives a question and its reply atomically.
func (s *Store) AppendTurn(ctx context.Context, sessionID, mode, question, answer string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transcript tx: %w", err)
	}
	defer tx.Rollback()

	at := s.now().Unix()
	for _, m := range []struct{ role, content string }{
		{"user", question},
		{"assistant", answer},
	} {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transcript (session_id, mode, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
			sessionID, mode, m.role, m.content, at,
		)
		if err != nil {
			return fmt.Errorf("archive %s message: %w", m.role, err)
		}
	}

	return tx.Commit()
}

// Recent returns up to limit entries for sessionID, oldest first.
func (s *Store) Recent(ctx context.Context, sessionID string, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, mode, role, content, created_at FROM (
			SELECT * FROM transcript
			WHERE session_id = ?
			ORDER BY id DESC
			LIMIT ?
		) ORDER BY id ASC`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Mode, &e.Role, &e.Content, &createdAt); err != nil {
			return nil, err
		}
		e.CreatedAt = time.Unix(createdAt, 0)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Sessions lists archived sessions, most recently active first.
func (s *Store) Sessions(ctx context.Context) ([]SessionInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, COUNT(*), MAX(created_at)
		FROM transcript
		GROUP BY session_id
		ORDER BY MAX(created_at) DESC, session_id`)
	if err != nil {
		return nil, fmt.Errorf("list transcript sessions: %w", err)
	}
	defer rows.Close()

	var infos []SessionInfo
	for rows.Next() {
		var info SessionInfo
		var lastAt int64
		if err := rows.Scan(&info.SessionID, &info.Messages, &lastAt); err != nil {
			return nil, err
		}
		info.LastAt = time.Unix(lastAt, 0)
		infos = append(infos, info)
	}

	return infos, rows.Err()
}

// Prune deletes entries older than retention and returns how many went.
func (s *Store) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention).Unix()

	res, err := s.db.ExecContext(ctx, `DELETE FROM transcript WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune transcript: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Clear(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM transcript WHERE session_id = ?`, sessionID)
	return err
}
