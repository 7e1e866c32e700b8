package repository

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMemory(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestResultRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := openMemory(t)
	require.NoError(t, db.HealthCheck(ctx, 0))

	repo, err := NewResultRepository(ctx, db, nil)
	require.NoError(t, err)

	key := ResultKey{ContentHash: "abc", Schema: "cpf\x00CPF\x00", Options: "th=0.85/0.6"}
	_, ok, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, repo.Put(ctx, key, []byte(`{"result":{"cpf":"1"}}`)))
	got, ok, err := repo.Get(ctx, key)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"result":{"cpf":"1"}}`, string(got))

	require.NoError(t, repo.Put(ctx, key, []byte(`{"result":{"cpf":"2"}}`)))
	got, _, err = repo.Get(ctx, key)
	require.NoError(t, err)
	assert.JSONEq(t, `{"result":{"cpf":"2"}}`, string(got))

	other := key
	other.Options = "th=0.9/0.6"
	_, ok, err = repo.Get(ctx, other)
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestResultRepositoryPersistsToFile(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "cache.db")
	key := ResultKey{ContentHash: "h", Schema: "s", Options: "o"}

	db, err := Open(ctx, Config{DSN: dsn}, nil)
	require.NoError(t, err)
	repo, err := NewResultRepository(ctx, db, nil)
	require.NoError(t, err)
	require.NoError(t, repo.Put(ctx, key, []byte(`{}`)))
	db.Close()

	db, err = Open(ctx, Config{DSN: dsn}, nil)
	require.NoError(t, err)
	defer db.Close()
	repo, err = NewResultRepository(ctx, db, nil)
	require.NoError(t, err)
	_, ok, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mysql"}, nil)
	assert.Error(t, err)
}

func TestRebind(t *testing.T) {
	pg := &DB{driver: DriverPostgres}
	assert.Equal(t, "a = $1 AND b = $2", pg.rebind("a = ? AND b = ?"))
	lite := &DB{driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}
