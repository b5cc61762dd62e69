package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFile(filepath.Join(t.TempDir(), "state", "session.json"))
	require.NoError(t, err)

	sqlite, err := OpenSQLite(context.Background(), "file::memory:?cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"sqlite": sqlite,
	}
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set(ctx, "auth_token", "token-1"))
			v, ok, err := s.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "token-1", v)

			require.NoError(t, s.Set(ctx, "auth_token", "token-2"))
			v, _, err = s.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.Equal(t, "token-2", v)

			require.NoError(t, s.Set(ctx, "auth_user", `{"id":"1"}`))
			require.NoError(t, s.Delete(ctx, "auth_token", "auth_user"))

			_, ok, err = s.Get(ctx, "auth_token")
			require.NoError(t, err)
			assert.False(t, ok)
			_, ok, err = s.Get(ctx, "auth_user")
			require.NoError(t, err)
			assert.False(t, ok)

			// deleting missing keys is not an error
			require.NoError(t, s.Delete(ctx, "missing"))
		})
	}
}

func TestMemoryClosed(t *testing.T) {
	s := NewMemory()
	require.NoError(t, s.Close())

	_, _, err := s.Get(context.Background(), "k")
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, s.Set(context.Background(), "k", "v"), ErrClosed)
}

func TestFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")

	first, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "auth_token", "persisted"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := NewFile(path)
	require.NoError(t, err)
	v, ok, err := second.Get(ctx, "auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", v)
}

func TestFileRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode session state file")
}

func TestFileRequiresPath(t *testing.T) {
	_, err := NewFile("  ")
	require.Error(t, err)
}

func TestBunPrune(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, "file:prune?mode=memory&cache=shared")
	require.NoError(t, err)
	defer s.Close()

	past := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return past }
	require.NoError(t, s.Set(ctx, "old", "v"))

	s.now = time.Now
	require.NoError(t, s.Set(ctx, "fresh", "v"))

	n, err := s.Prune(ctx, past.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err := s.Get(ctx, "old")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = s.Get(ctx, "fresh")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBunReadKeepsEntryAlive(t *testing.T) {
	ctx := context.Background()
	s, err := OpenSQLite(ctx, "file:touch?mode=memory&cache=shared")
	require.NoError(t, err)
	defer s.Close()

	signedIn := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return signedIn }
	require.NoError(t, s.Set(ctx, "sid:auth_token", "tok"))
	require.NoError(t, s.Set(ctx, "sid:idle", "v"))

	s.now = func() time.Time { return signedIn.Add(2 * time.Hour) }
	v, ok, err := s.Get(ctx, "sid:auth_token")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "tok", v)

	n, err := s.Prune(ctx, signedIn.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok, err = s.Get(ctx, "sid:auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	_, ok, err = s.Get(ctx, "sid:idle")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBunPostgresQueries(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewBun(bun.NewDB(db, pgdialect.New()))

	rows := sqlmock.NewRows([]string{"id", "entry_key", "entry_value", "updated_at"}).
		AddRow(uuid.New().String(), "sid:auth_token", "tok", time.Now())
	mock.ExpectQuery("SELECT .* FROM .*session_entries.*entry_key").WillReturnRows(rows)
	v, ok, err := s.Get(ctx, "sid:auth_token")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "tok", v)

	mock.ExpectQuery("SELECT .* FROM .*session_entries").
		WillReturnRows(sqlmock.NewRows([]string{"id", "entry_key", "entry_value", "updated_at"}))
	_, ok, err = s.Get(ctx, "sid:missing")
	require.NoError(t, err)
	assert.False(t, ok)

	mock.ExpectExec("DELETE FROM .*session_entries.*entry_key IN").WillReturnResult(sqlmock.NewResult(0, 2))
	require.NoError(t, s.Delete(ctx, "sid:auth_token", "sid:auth_user"))

	mock.ExpectExec("DELETE FROM .*session_entries.*updated_at").WillReturnResult(sqlmock.NewResult(0, 3))
	n, err := s.Prune(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := GetMigrationsFS().ReadDir("data/sql/migrations")
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "20260301000000_create_session_entries.up.sql")
	assert.Contains(t, names, "20260301000000_create_session_entries.down.sql")
}

func TestOpenDrivers(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, "", "")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	s, err = Open(ctx, DriverFile, filepath.Join(t.TempDir(), "s.json"))
	require.NoError(t, err)
	assert.IsType(t, &File{}, s)

	_, err = Open(ctx, "redis", "")
	require.Error(t, err)
}
