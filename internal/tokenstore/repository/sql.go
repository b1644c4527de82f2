package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"inventory-mobile/client/internal/db"
)

// SQLRepository implements Repository over the client_kv table in SQLite or Postgres.
type SQLRepository struct {
	db      *sql.DB
	dialect db.Dialect
	nowF    func() time.Time
}

// NewSQLRepository returns a repository backed by conn. The schema must already be migrated.
func NewSQLRepository(conn *sql.DB, dialect db.Dialect) *SQLRepository {
	return &SQLRepository{db: conn, dialect: dialect, nowF: func() time.Time { return time.Now().UTC() }}
}

func (r *SQLRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRowContext(ctx, r.dialect.Rebind(
		`SELECT value FROM client_kv WHERE store_key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *SQLRepository) Put(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`INSERT INTO client_kv (store_key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT (store_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`),
		key, value, r.nowF())
	return err
}

func (r *SQLRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(keys)), ", ")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(
		`DELETE FROM client_kv WHERE store_key IN (`+placeholders+`)`), args...)
	return err
}
