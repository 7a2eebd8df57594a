package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"facility/internal/store"
)

// SQLStore persists session values in a session_kv table. It works with the
// sqlite and pgx drivers.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

// EnsureSchema creates the session_kv table if it does not exist.
func (r *SQLStore) EnsureSchema(ctx context.Context) error {
	blob := "BLOB"
	if r.driver == store.DriverPostgres {
		blob = "BYTEA"
	}
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS session_kv (
		key   TEXT PRIMARY KEY,
		value `+blob+` NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to create session_kv: %w", err)
	}
	return nil
}

func (r *SQLStore) ph(n int) string {
	if r.driver == store.DriverPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (r *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE key = `+r.ph(1), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session[%s]: %w", key, err)
	}
	return value, nil
}

func (r *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO session_kv (key, value) VALUES (`+r.ph(1)+`, `+r.ph(2)+`)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set session[%s]: %w", key, err)
	}
	return nil
}

func (r *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM session_kv WHERE key = `+r.ph(1), key)
	if err != nil {
		return fmt.Errorf("failed to delete session[%s]: %w", key, err)
	}
	return nil
}
