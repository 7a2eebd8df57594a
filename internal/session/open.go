package session

import (
	"context"
	"fmt"
	"io"

	"facility/internal/config"
	"facility/internal/store"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// Open builds the session configured by SESSION_BACKEND. The returned closer
// releases the backing connection.
func Open(ctx context.Context, cfg config.App) (*Session, io.Closer, error) {
	switch cfg.SessionBackend {
	case "memory":
		return NewMemory(), nopCloser{}, nil
	case "sqlite", "postgres":
		driver := store.DriverSQLite
		if cfg.SessionBackend == "postgres" {
			driver = store.DriverPostgres
		}
		db, err := store.NewDB(ctx, driver, cfg.SessionDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("session: open %s: %w", cfg.SessionBackend, err)
		}
		s := NewSQLStore(db.Client, driver)
		if err := s.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return New(s), db, nil
	case "redis":
		r, err := store.NewRedis(cfg.RedisAddr)
		if err != nil {
			return nil, nil, fmt.Errorf("session: open redis: %w", err)
		}
		return New(NewRedisStore(r.Client, cfg.SessionRedisPrefix)), r, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.SessionBackend)
	}
}
