package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/postpilot/internal/config"
	"github.com/kiranshivaraju/postpilot/pkg/models"
)

var ErrNotFound = errors.New("job not found")

// JobStore persists jobs. Only the scheduler writes through it.
type JobStore interface {
	Ping(ctx context.Context) error
	List(ctx context.Context) ([]*models.Job, error)
	Get(ctx context.Context, id string) (*models.Job, error)
	Upsert(ctx context.Context, job *models.Job) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// Open returns the store selected by cfg.Driver. Postgres stores have their
// migrations applied before they are returned.
func Open(ctx context.Context, cfg config.StoreConfig) (JobStore, error) {
	switch cfg.Driver {
	case config.StoreFile, "":
		return NewFileStore(cfg.Path), nil
	case config.StorePostgres:
		if err := RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		pool, err := Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
