package core

import (
	"context"
	"fmt"

	"elevadorpro/internal/infra/persistence/memory"
	"elevadorpro/internal/infra/persistence/postgres"
	"elevadorpro/internal/infra/persistence/sqlite"
	seedfs "elevadorpro/internal/infra/seedstore/fs"
	seedmem "elevadorpro/internal/infra/seedstore/memory"
	seeds3 "elevadorpro/internal/infra/seedstore/s3"
	"elevadorpro/internal/overlay"
	"elevadorpro/internal/seedstore"
)

// SeedConfig selects where seed datasets are read from.
type SeedConfig struct {
	Driver seedstore.Driver // fs (default), s3 or memory
	FSRoot string
	S3     seeds3.Config
}

// OverlayConfig selects the overlay persistence backend.
type OverlayConfig struct {
	Driver      overlay.Driver // sqlite (default), postgres or memory
	SQLitePath  string
	PostgresDSN string
}

// OpenSeedSource builds the seed source named by cfg.Driver.
func OpenSeedSource(ctx context.Context, cfg SeedConfig) (seedstore.Source, error) {
	switch cfg.Driver {
	case "", seedstore.DriverFilesystem:
		src, err := seedfs.New(cfg.FSRoot)
		if err != nil {
			return nil, err
		}
		return src, nil
	case seedstore.DriverS3:
		src, err := seeds3.New(ctx, cfg.S3)
		if err != nil {
			return nil, err
		}
		return src, nil
	case seedstore.DriverMemory:
		return seedmem.New(), nil
	default:
		return nil, fmt.Errorf("unknown seed driver %q", cfg.Driver)
	}
}

// OpenOverlayBackend builds the overlay backend named by cfg.Driver.
func OpenOverlayBackend(ctx context.Context, cfg OverlayConfig) (overlay.Backend, error) {
	switch cfg.Driver {
	case "", overlay.DriverSQLite:
		b, err := sqlite.NewStore(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return b, nil
	case overlay.DriverPostgres:
		b, err := postgres.NewStore(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		return b, nil
	case overlay.DriverMemory:
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown overlay driver %q", cfg.Driver)
	}
}
