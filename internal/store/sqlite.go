package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sweet-james/adreport/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
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
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	body       TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS utm_mappings (
	utm        TEXT PRIMARY KEY,
	bucket     TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS day_cache (
	id         TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	variant    TEXT NOT NULL,
	payload    TEXT NOT NULL,
	cached_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	expires_at DATETIME,
	UNIQUE(date, variant)
);

CREATE INDEX IF NOT EXISTS idx_day_cache_expires_at ON day_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCampaignMappings(ctx context.Context) (map[string][]string, error) {
	var m map[string][]string
	if err := s.getDocument(ctx, DocCampaignMappings, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *SQLiteStore) SaveCampaignMappings(ctx context.Context, m map[string][]string) error {
	return s.saveDocument(ctx, DocCampaignMappings, m)
}

func (s *SQLiteStore) GetForecastSettings(ctx context.Context) (*model.ForecastSettings, error) {
	var fs *model.ForecastSettings
	if err := s.getDocument(ctx, DocForecastSettings, &fs); err != nil {
		return nil, err
	}
	if fs != nil {
		fs.Normalize()
	}
	return fs, nil
}

func (s *SQLiteStore) SaveForecastSettings(ctx context.Context, fs *model.ForecastSettings) error {
	return s.saveDocument(ctx, DocForecastSettings, fs)
}

// getDocument unmarshals a document body into out. A missing document leaves
// out untouched.
func (s *SQLiteStore) getDocument(ctx context.Context, key string, out any) error {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM documents WHERE key = ?`, key,
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "sqlite: get document %s", key)
	}
	return eris.Wrapf(json.Unmarshal([]byte(body), out), "sqlite: unmarshal document %s", key)
}

func (s *SQLiteStore) saveDocument(ctx context.Context, key string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrapf(err, "sqlite: marshal document %s", key)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (key, body, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		key, string(body), time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save document %s", key)
}

func (s *SQLiteStore) GetUTMMappings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT utm, bucket FROM utm_mappings`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get utm mappings")
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var utm, bucket string
		if err := rows.Scan(&utm, &bucket); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan utm mapping")
		}
		m[utm] = bucket
	}
	return m, eris.Wrap(rows.Err(), "sqlite: utm mappings iterate")
}

func (s *SQLiteStore) SetUTMMapping(ctx context.Context, utm, bucket string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO utm_mappings (utm, bucket, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(utm) DO UPDATE SET bucket = excluded.bucket, updated_at = excluded.updated_at`,
		utm, bucket, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: set utm mapping %s", utm)
}

func (s *SQLiteStore) DeleteUTMMapping(ctx context.Context, utm string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM utm_mappings WHERE utm = ?`, utm)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: delete utm mapping %s", utm)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, eris.Wrap(err, "sqlite: rows affected")
	}
	return n > 0, nil
}

func (s *SQLiteStore) ReplaceUTMMappings(ctx context.Context, m map[string]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin replace utm mappings")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM utm_mappings`); err != nil {
		return eris.Wrap(err, "sqlite: clear utm mappings")
	}
	now := time.Now().UTC()
	for utm, bucket := range m {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO utm_mappings (utm, bucket, updated_at) VALUES (?, ?, ?)`,
			utm, bucket, now,
		); err != nil {
			return eris.Wrapf(err, "sqlite: insert utm mapping %s", utm)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit replace utm mappings")
}

func (s *SQLiteStore) GetCachedDay(ctx context.Context, date, variant string) ([]byte, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload FROM day_cache
		 WHERE date = ? AND variant = ? AND (expires_at IS NULL OR expires_at > datetime('now'))`,
		date, variant,
	).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get cached day %s", date)
	}
	return []byte(payload), nil
}

func (s *SQLiteStore) SetCachedDay(ctx context.Context, date, variant string, payload []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	var expiresAt any
	if ttl != 0 {
		expiresAt = now.Add(ttl)
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO day_cache (id, date, variant, payload, cached_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(date, variant) DO UPDATE SET
		   payload = excluded.payload, cached_at = excluded.cached_at, expires_at = excluded.expires_at`,
		uuid.New().String(), date, variant, string(payload), now, expiresAt,
	)
	return eris.Wrapf(err, "sqlite: set cached day %s", date)
}

func (s *SQLiteStore) DeleteExpiredDays(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM day_cache WHERE expires_at IS NOT NULL AND expires_at <= datetime('now')`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired days")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}
