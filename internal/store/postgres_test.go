package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_GetCampaignMappings_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT body FROM documents WHERE key = \$1`).
		WithArgs(DocCampaignMappings).
		WillReturnError(pgx.ErrNoRows)

	m, err := s.GetCampaignMappings(context.Background())
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCampaignMappings_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT body FROM documents WHERE key = \$1`).
		WithArgs(DocCampaignMappings).
		WillReturnRows(pgxmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"Texas Brand":["TX-EN-Brand"]}`)))

	m, err := s.GetCampaignMappings(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{"Texas Brand": {"TX-EN-Brand"}}, m)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveCampaignMappings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs(DocCampaignMappings, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SaveCampaignMappings(context.Background(), map[string][]string{"Texas Brand": {"TX"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetForecastSettings_NormalizesPartial(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT body FROM documents WHERE key = \$1`).
		WithArgs(DocForecastSettings).
		WillReturnRows(pgxmock.NewRows([]string{"body"}).
			AddRow([]byte(`{"targets":{"CA":{"spend":42}}}`)))

	fs, err := s.GetForecastSettings(context.Background())
	require.NoError(t, err)
	require.NotNil(t, fs)
	assert.Equal(t, 42.0, fs.Targets["CA"].Spend)
	assert.Equal(t, 1250.0, fs.CPLTargets["CA"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UTMMappings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT utm, bucket FROM utm_mappings`).
		WillReturnRows(pgxmock.NewRows([]string{"utm", "bucket"}).
			AddRow("ca-brand", "California Brand").
			AddRow("crisp", "Crisp/Youtube"))

	m, err := s.GetUTMMappings(context.Background())
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Equal(t, "Crisp/Youtube", m["crisp"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetUTMMapping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO utm_mappings`).
		WithArgs("ca-brand", "California Brand", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SetUTMMapping(context.Background(), "ca-brand", "California Brand"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteUTMMapping(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM utm_mappings WHERE utm = \$1`).
		WithArgs("gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	ok, err := s.DeleteUTMMapping(context.Background(), "gone")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceUTMMappings(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM utm_mappings`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCopyFrom(pgx.Identifier{"utm_mappings"}, []string{"utm", "bucket", "updated_at"}).
		WillReturnResult(1)
	mock.ExpectCommit()

	err := s.ReplaceUTMMappings(context.Background(), map[string]string{"crisp": "Crisp/Youtube"})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ReplaceUTMMappings_EmptySkipsCopy(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM utm_mappings`).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	err := s.ReplaceUTMMappings(context.Background(), nil)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetCachedDay_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload FROM day_cache`).
		WithArgs("2026-03-01", "default").
		WillReturnError(pgx.ErrNoRows)

	payload, err := s.GetCachedDay(context.Background(), "2026-03-01", "default")
	require.NoError(t, err)
	assert.Nil(t, payload)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetCachedDay(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO day_cache`).
		WithArgs(pgxmock.AnyArg(), "2026-03-01", "default", []byte(`{"leads":5}`), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetCachedDay(context.Background(), "2026-03-01", "default", []byte(`{"leads":5}`), time.Hour)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteExpiredDays(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM day_cache WHERE expires_at IS NOT NULL`).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteExpiredDays(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
