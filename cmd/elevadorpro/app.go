package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"elevadorpro/internal/config"
	"elevadorpro/internal/core"
	"elevadorpro/internal/logging"
	"elevadorpro/internal/overlay"
	"elevadorpro/internal/seed"
	"elevadorpro/internal/seedstore"
)

// app holds the components every subcommand shares.
type app struct {
	cfg    config.Config
	zap    *zap.Logger
	log    logging.Logger
	source seedstore.Source
	seeds  *seed.Reader
	local  *overlay.Store
	engine *core.Engine
	svc    *core.Service
}

// openApp loads the configuration for cmd and opens both stores.
func openApp(ctx context.Context, cmd *cobra.Command, opts ...core.Option) (*app, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, opts...)
}

func newApp(ctx context.Context, cfg config.Config, opts ...core.Option) (*app, error) {
	zl, err := logging.New(cfg.Log.Debug)
	if err != nil {
		return nil, err
	}
	log := logging.FromZap(zl)

	source, err := core.OpenSeedSource(ctx, cfg.SeedConfig())
	if err != nil {
		_ = zl.Sync()
		return nil, fmt.Errorf("open seed source: %w", err)
	}
	backend, err := core.OpenOverlayBackend(ctx, cfg.OverlayConfig())
	if err != nil {
		_ = zl.Sync()
		return nil, fmt.Errorf("open overlay store: %w", err)
	}

	seeds := seed.NewReader(source, seed.WithPrefix(cfg.Seed.Prefix), seed.WithLogger(log))
	local := overlay.NewStore(backend, overlay.WithKeyPrefix(cfg.Overlay.KeyPrefix), overlay.WithLogger(log))
	engine := core.NewEngine(seeds, local, append([]core.Option{core.WithLogger(log)}, opts...)...)
	log.Debug("stores opened", "seed_driver", source.Driver(), "overlay_driver", backend.Driver())
	return &app{
		cfg:    cfg,
		zap:    zl,
		log:    log,
		source: source,
		seeds:  seeds,
		local:  local,
		engine: engine,
		svc:    core.NewService(engine),
	}, nil
}

func (a *app) Close() error {
	err := a.local.Close()
	_ = a.zap.Sync()
	return err
}
