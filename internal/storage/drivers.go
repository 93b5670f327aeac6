package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/docsearch/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/postgres"
)

// Open returns the store selected by cfg.Storage.Driver, or nil for "none".
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Storage.Driver {
	case "", "none":
		return nil, nil
	case "postgres":
		return NewPostgres(ctx, cfg.Postgres)
	case "sqlite":
		return NewSQLite(ctx, cfg.SQLite.Path)
	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", apperrors.ErrInvalidInput, cfg.Storage.Driver)
	}
}

func NewPostgres(ctx context.Context, cfg config.PostgresConfig) (Store, error) {
	client, err := postgres.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperrors.ErrStorage, err)
	}
	s, err := newSQLStore(ctx, client.DB, "postgres", true)
	if err != nil {
		client.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLite opens (creating if needed) the database file at path. A single
// connection is used so writers never contend for the file lock.
func NewSQLite(ctx context.Context, path string) (Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening sqlite %s: %w", apperrors.ErrStorage, path, err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: opening sqlite %s: %w", apperrors.ErrStorage, path, err)
	}
	s, err := newSQLStore(ctx, db, "sqlite3", false)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}
