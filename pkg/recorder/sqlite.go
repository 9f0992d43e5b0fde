package recorder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS samples (
	session_id     TEXT    NOT NULL,
	epoch          INTEGER NOT NULL,
	seq            INTEGER NOT NULL,
	frame_id       INTEGER NOT NULL,
	recorded_at    INTEGER NOT NULL,
	mouth_openness REAL    NOT NULL,
	eye_openness   REAL    NOT NULL,
	smile_level    REAL    NOT NULL,
	pitch          REAL    NOT NULL,
	yaw            REAL    NOT NULL,
	roll           REAL    NOT NULL,
	PRIMARY KEY (session_id, epoch, seq)
);
CREATE INDEX IF NOT EXISTS samples_session_time ON samples (session_id, recorded_at);
`

// SQLite stores samples in a SQLite database.
type SQLite struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (creating if needed) a SQLite recorder at path.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close closes the SQLite handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts one sample.
func (s *SQLite) Record(ctx context.Context, sample Sample) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrClosed
	}
	if strings.TrimSpace(sample.SessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	recordedAt := sample.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	m := sample.Metrics
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO samples (
		   session_id, epoch, seq, frame_id, recorded_at,
		   mouth_openness, eye_openness, smile_level,
		   pitch, yaw, roll
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sample.SessionID,
		sample.Epoch,
		int64(sample.Sequence),
		int64(sample.FrameID),
		toMillis(recordedAt),
		m.MouthOpenness,
		m.EyeOpenness,
		m.SmileLevel,
		m.HeadPose.Pitch,
		m.HeadPose.Yaw,
		m.HeadPose.Roll,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if strings.Contains(err.Error(), "database is closed") {
			return ErrClosed
		}
		return fmt.Errorf("record sample: %w", err)
	}
	return nil
}

// History returns the most recent samples for a session, oldest first.
func (s *SQLite) History(ctx context.Context, sessionID string, limit int) ([]Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, ErrClosed
	}
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, epoch, seq, frame_id, recorded_at,
		        mouth_openness, eye_openness, smile_level,
		        pitch, yaw, roll
		   FROM samples
		  WHERE session_id = ?
		  ORDER BY epoch DESC, seq DESC
		  LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []Sample
	for rows.Next() {
		var (
			sample     Sample
			seq, frame int64
			recordedAt int64
		)
		m := &sample.Metrics
		if err := rows.Scan(
			&sample.SessionID, &sample.Epoch, &seq, &frame, &recordedAt,
			&m.MouthOpenness, &m.EyeOpenness, &m.SmileLevel,
			&m.HeadPose.Pitch, &m.HeadPose.Yaw, &m.HeadPose.Roll,
		); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		sample.Sequence = uint64(seq)
		sample.FrameID = uint64(frame)
		sample.RecordedAt = fromMillis(recordedAt)
		out = append(out, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	// Oldest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
