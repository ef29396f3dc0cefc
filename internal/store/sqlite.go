package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		dsn = "refdata.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS usage_log (
	id          TEXT PRIMARY KEY,
	content     TEXT NOT NULL,
	source_urls TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_usage_log_created_at ON usage_log(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LogUsage(ctx context.Context, content string, sourceURLs []string) (*UsageRecord, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	urlsJSON, err := json.Marshal(sourceURLs)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal source urls")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO usage_log (id, content, source_urls, created_at) VALUES (?, ?, ?, ?)`,
		id, content, string(urlsJSON), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert usage")
	}

	return &UsageRecord{
		ID:         id,
		Content:    content,
		SourceURLs: sourceURLs,
		CreatedAt:  now,
	}, nil
}

func (s *SQLiteStore) ListUsage(ctx context.Context, limit int) ([]UsageRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, source_urls, created_at FROM usage_log ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list usage")
	}
	defer rows.Close()

	var records []UsageRecord
	for rows.Next() {
		var (
			rec      UsageRecord
			urlsJSON string
		)
		if err := rows.Scan(&rec.ID, &rec.Content, &urlsJSON, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan usage row")
		}
		if err := json.Unmarshal([]byte(urlsJSON), &rec.SourceURLs); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal source urls")
		}
		records = append(records, rec)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate usage rows")
}
