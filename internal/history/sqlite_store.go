package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"introspect/internal/domain"
)

var ErrNotFound = errors.New("summary not found")

const dateLayout = time.RFC3339Nano

// SQLiteStore keeps session summaries in an append-only SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the history database at dbPath. Use
// ":memory:" for a throwaway store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS summaries (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  session_id TEXT NOT NULL,
  date TEXT NOT NULL,
  duration_minutes INTEGER NOT NULL,
  headline TEXT NOT NULL,
  full_text TEXT NOT NULL,
  average_heart_rate INTEGER NOT NULL,
  total_insights INTEGER NOT NULL,
  most_common_emotion TEXT
);
`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create summaries table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, summary domain.SessionSummary) error {
	const stmt = `
INSERT INTO summaries (id, session_id, date, duration_minutes, headline, full_text, average_heart_rate, total_insights, most_common_emotion)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`
	_, err := s.db.ExecContext(ctx, stmt,
		summary.ID,
		summary.SessionID,
		summary.Date.UTC().Format(dateLayout),
		summary.DurationMinutes,
		summary.Headline,
		summary.FullText,
		summary.AverageHeartRate,
		summary.TotalInsights,
		summary.MostCommonEmotion,
	)
	if err != nil {
		return fmt.Errorf("append summary: %w", err)
	}
	return nil
}

// List returns every summary, most recent first.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, session_id, date, duration_minutes, headline, full_text, average_heart_rate, total_insights, most_common_emotion
FROM summaries
ORDER BY seq DESC;
`)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	out := make([]domain.SessionSummary, 0)
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate summaries: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.SessionSummary, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT id, session_id, date, duration_minutes, headline, full_text, average_heart_rate, total_insights, most_common_emotion
FROM summaries
WHERE id = ?;
`, id)
	summary, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionSummary{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return summary, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (domain.SessionSummary, error) {
	var (
		summary domain.SessionSummary
		date    string
		emotion sql.NullString
	)
	err := row.Scan(
		&summary.ID,
		&summary.SessionID,
		&date,
		&summary.DurationMinutes,
		&summary.Headline,
		&summary.FullText,
		&summary.AverageHeartRate,
		&summary.TotalInsights,
		&emotion,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.SessionSummary{}, err
		}
		return domain.SessionSummary{}, fmt.Errorf("scan summary: %w", err)
	}
	parsed, err := time.Parse(dateLayout, date)
	if err != nil {
		return domain.SessionSummary{}, fmt.Errorf("parse summary date %q: %w", date, err)
	}
	summary.Date = parsed
	summary.MostCommonEmotion = emotion.String
	return summary, nil
}
