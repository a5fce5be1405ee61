package cmd

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ginjaninja78/wfc-ingest/internal/config"
	"github.com/ginjaninja78/wfc-ingest/internal/ingest"
	"github.com/ginjaninja78/wfc-ingest/internal/source"
	"github.com/ginjaninja78/wfc-ingest/internal/store"
)

// openDiscovery builds the discovery source named by cfg.Source.
func openDiscovery(ctx context.Context, cfg *config.MainConfig, log *zap.Logger) (ingest.Discovery, error) {
	switch cfg.Source {
	case config.SourceLocal:
		if err := cfg.RequireLocal(); err != nil {
			return nil, err
		}
		return source.NewLocal(cfg.Local.Dir), nil
	case config.SourceDrive:
		if err := cfg.RequireDrive(); err != nil {
			return nil, err
		}
		drive, err := source.NewDrive(ctx, cfg.Drive, log.Named("drive"))
		if err != nil {
			return nil, fmt.Errorf("failed to open drive source: %w", err)
		}
		return drive, nil
	default:
		return nil, fmt.Errorf("unknown source %q", cfg.Source)
	}
}

// openStore connects to Postgres. Only a dry run may go without a DSN; it
// then reads from an empty in-memory store. The returned func releases the
// connection.
func openStore(ctx context.Context, cfg *config.MainConfig, log *zap.Logger, dry bool) (ingest.Store, func(), error) {
	if cfg.Store.DSN == "" {
		if !dry {
			return nil, nil, cfg.RequireStore()
		}
		log.Warn("store dsn not provided; dry run reads from an empty in-memory store")
		return store.NewMemoryStore(), func() {}, nil
	}

	pg, err := store.NewPostgres(ctx, cfg.Store, log.Named("store"))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}
	if cfg.Store.EnsureSchema {
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, nil, err
		}
	}
	return pg, pg.Close, nil
}

// openLocker returns a Redis run lock, or nil when locking is not configured.
func openLocker(cfg *config.MainConfig, log *zap.Logger) (ingest.Locker, func()) {
	if cfg.Lock.RedisAddr == "" {
		return nil, func() {}
	}
	l := store.NewRedisLocker(cfg.Lock, log.Named("lock"))
	return l, l.Close
}
