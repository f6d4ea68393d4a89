package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vormiaphp/vormiaquery/internal/common"
	"github.com/vormiaphp/vormiaquery/internal/dbx"
	"github.com/vormiaphp/vormiaquery/internal/storage/migrations"
)

// SQLiteStore persists values in the kv table.
type SQLiteStore struct {
	db  *sql.DB
	q   dbx.DBTX
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the store database at dsn and
// migrates it. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := dbx.OpenSQLite(ctx, dsn, migrations.Migrations)
	if err != nil {
		return nil, err
	}
	return NewSQLiteStore(db), nil
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, q: db, now: time.Now}
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, error) {
	var (
		value     []byte
		expiresAt sql.NullInt64
	)
	err := s.q.QueryRowContext(ctx, `SELECT value, expires_at FROM kv WHERE key = ?`, key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kv[%s]: %w", key, err)
	}

	if expiresAt.Valid && s.now().UnixMilli() >= expiresAt.Int64 {
		if _, err := s.q.ExecContext(ctx, `DELETE FROM kv WHERE key = ? AND expires_at = ?`, key, expiresAt.Int64); err != nil {
			return nil, fmt.Errorf("failed to expire kv[%s]: %w", key, err)
		}
		return nil, common.ErrNotFound
	}
	return value, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, opts ...SetOption) error {
	o := applySetOptions(opts)
	now := s.now()

	var expiresAt sql.NullInt64
	if exp := o.expiresAt(now); !exp.IsZero() {
		expiresAt = sql.NullInt64{Int64: exp.UnixMilli(), Valid: true}
	}
	if value == nil {
		value = []byte{}
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO kv (key, value, expires_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at
	`, key, value, expiresAt, now.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to set kv[%s]: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Remove(ctx context.Context, key string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete kv[%s]: %w", key, err)
	}
	return nil
}

// Clear removes the namespace and, in the same transaction, every expired
// row.
func (s *SQLiteStore) Clear(ctx context.Context, namespace string) error {
	prefix := namespacePrefix(namespace)

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if prefix == "" {
			if _, err := tx.ExecContext(ctx, `DELETE FROM kv`); err != nil {
				return fmt.Errorf("failed to clear kv: %w", err)
			}
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM kv WHERE instr(key, ?) = 1`, prefix); err != nil {
			return fmt.Errorf("failed to clear kv namespace %s: %w", namespace, err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM kv WHERE expires_at IS NOT NULL AND expires_at <= ?`, s.now().UnixMilli()); err != nil {
			return fmt.Errorf("failed to purge expired kv: %w", err)
		}
		return nil
	})
}

// Keys lists live keys with the given prefix in key order.
func (s *SQLiteStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT key FROM kv
		WHERE instr(key, ?) = 1 AND (expires_at IS NULL OR expires_at > ?)
		ORDER BY key`, prefix, s.now().UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to list kv: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan kv row: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate kv rows: %w", err)
	}
	return keys, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
