package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMigrations = fstest.MapFS{
	"00001_items.sql": &fstest.MapFile{Data: []byte(`-- +goose Up
CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT NOT NULL);

-- +goose Down
DROP TABLE items;
`)},
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenSQLite(context.Background(), ":memory:", testMigrations)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countItems(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM items`).Scan(&n))
	return n
}

func TestOpenSQLite_AppliesMigrations(t *testing.T) {
	db := openTestDB(t)
	assert.Equal(t, 0, countItems(t, db))

	// running again is a no-op
	require.NoError(t, Migrate(context.Background(), db, testMigrations))
}

func TestOpenSQLite_MigrationError(t *testing.T) {
	prev := gooseUpContext
	t.Cleanup(func() { gooseUpContext = prev })
	gooseUpContext = func(context.Context, *sql.DB, string) error { return errors.New("boom") }

	_, err := OpenSQLite(context.Background(), ":memory:", testMigrations)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrate sqlite: boom")
}

func TestWithTx_Commit(t *testing.T) {
	db := openTestDB(t)
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO items(name) VALUES ('a'), ('b')`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 2, countItems(t, db))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := openTestDB(t)
	boom := errors.New("boom")
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO items(name) VALUES ('a')`)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countItems(t, db))
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db := openTestDB(t)
	assert.PanicsWithValue(t, "kaboom", func() {
		_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
			_, _ = tx.ExecContext(ctx, `INSERT INTO items(name) VALUES ('a')`)
			panic("kaboom")
		})
	})
	assert.Equal(t, 0, countItems(t, db))
}

func TestWithTx_BeginError(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	called := false
	err = WithTx(context.Background(), db, nil, func(context.Context, DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
}
