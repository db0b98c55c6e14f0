package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sweet-james/adreport/internal/db"
	"github.com/sweet-james/adreport/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_document":    `SELECT body FROM documents WHERE key = $1`,
	"save_document":   `INSERT INTO documents (key, body, updated_at) VALUES ($1, $2, $3) ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
	"get_cached_day":  `SELECT payload FROM day_cache WHERE date = $1 AND variant = $2 AND (expires_at IS NULL OR expires_at > now())`,
	"set_cached_day":  `INSERT INTO day_cache (id, date, variant, payload, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (date, variant) DO UPDATE SET payload = EXCLUDED.payload, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
	"set_utm_mapping": `INSERT INTO utm_mappings (utm, bucket, updated_at) VALUES ($1, $2, $3) ON CONFLICT (utm) DO UPDATE SET bucket = EXCLUDED.bucket, updated_at = EXCLUDED.updated_at`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS documents (
	key        TEXT PRIMARY KEY,
	body       JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS utm_mappings (
	utm        TEXT PRIMARY KEY,
	bucket     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS day_cache (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	date       TEXT NOT NULL,
	variant    TEXT NOT NULL,
	payload    JSONB NOT NULL,
	cached_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ,
	UNIQUE(date, variant)
);

CREATE INDEX IF NOT EXISTS idx_day_cache_expires_at ON day_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetCampaignMappings(ctx context.Context) (map[string][]string, error) {
	var m map[string][]string
	if err := s.getDocument(ctx, DocCampaignMappings, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *PostgresStore) SaveCampaignMappings(ctx context.Context, m map[string][]string) error {
	return s.saveDocument(ctx, DocCampaignMappings, m)
}

func (s *PostgresStore) GetForecastSettings(ctx context.Context) (*model.ForecastSettings, error) {
	var fs *model.ForecastSettings
	if err := s.getDocument(ctx, DocForecastSettings, &fs); err != nil {
		return nil, err
	}
	if fs != nil {
		fs.Normalize()
	}
	return fs, nil
}

func (s *PostgresStore) SaveForecastSettings(ctx context.Context, fs *model.ForecastSettings) error {
	return s.saveDocument(ctx, DocForecastSettings, fs)
}

func (s *PostgresStore) getDocument(ctx context.Context, key string, out any) error {
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT body FROM documents WHERE key = $1`, key).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return eris.Wrapf(err, "postgres: get document %s", key)
	}
	return eris.Wrapf(json.Unmarshal(body, out), "postgres: unmarshal document %s", key)
}

func (s *PostgresStore) saveDocument(ctx context.Context, key string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return eris.Wrapf(err, "postgres: marshal document %s", key)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO documents (key, body, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at`,
		key, body, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save document %s", key)
}

func (s *PostgresStore) GetUTMMappings(ctx context.Context) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT utm, bucket FROM utm_mappings`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get utm mappings")
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var utm, bucket string
		if err := rows.Scan(&utm, &bucket); err != nil {
			return nil, eris.Wrap(err, "postgres: scan utm mapping")
		}
		m[utm] = bucket
	}
	return m, eris.Wrap(rows.Err(), "postgres: utm mappings iterate")
}

func (s *PostgresStore) SetUTMMapping(ctx context.Context, utm, bucket string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO utm_mappings (utm, bucket, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (utm) DO UPDATE SET bucket = EXCLUDED.bucket, updated_at = EXCLUDED.updated_at`,
		utm, bucket, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: set utm mapping %s", utm)
}

func (s *PostgresStore) DeleteUTMMapping(ctx context.Context, utm string) (bool, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM utm_mappings WHERE utm = $1`, utm)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: delete utm mapping %s", utm)
	}
	return tag.RowsAffected() > 0, nil
}

// ReplaceUTMMappings swaps the whole table inside one transaction, bulk
// loading the new rows with COPY.
func (s *PostgresStore) ReplaceUTMMappings(ctx context.Context, m map[string]string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin replace utm mappings")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM utm_mappings`); err != nil {
		return eris.Wrap(err, "postgres: clear utm mappings")
	}

	now := time.Now().UTC()
	rows := make([][]any, 0, len(m))
	for utm, bucket := range m {
		rows = append(rows, []any{utm, bucket, now})
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx, pgx.Identifier{"utm_mappings"},
			[]string{"utm", "bucket", "updated_at"}, pgx.CopyFromRows(rows))
		if err != nil {
			return eris.Wrap(err, "postgres: copy utm mappings")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit replace utm mappings")
}

func (s *PostgresStore) GetCachedDay(ctx context.Context, date, variant string) ([]byte, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT payload FROM day_cache WHERE date = $1 AND variant = $2 AND (expires_at IS NULL OR expires_at > now())`,
		date, variant,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get cached day %s", date)
	}
	return payload, nil
}

func (s *PostgresStore) SetCachedDay(ctx context.Context, date, variant string, payload []byte, ttl time.Duration) error {
	now := time.Now().UTC()
	var expiresAt *time.Time
	if ttl != 0 {
		t := now.Add(ttl)
		expiresAt = &t
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO day_cache (id, date, variant, payload, cached_at, expires_at) VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (date, variant) DO UPDATE SET
		   payload = EXCLUDED.payload, cached_at = EXCLUDED.cached_at, expires_at = EXCLUDED.expires_at`,
		uuid.New().String(), date, variant, payload, now, expiresAt,
	)
	return eris.Wrapf(err, "postgres: set cached day %s", date)
}

func (s *PostgresStore) DeleteExpiredDays(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM day_cache WHERE expires_at IS NOT NULL AND expires_at <= now()`,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired days")
	}
	return int(tag.RowsAffected()), nil
}
