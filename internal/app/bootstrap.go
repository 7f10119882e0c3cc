package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/leafbox-next/internal/config"
	"github.com/leafbox-next/internal/logger"
	"github.com/leafbox-next/internal/metrics"
	"github.com/leafbox-next/internal/models"
	"github.com/leafbox-next/internal/provider"
	"github.com/leafbox-next/internal/router"
	"github.com/leafbox-next/internal/worker"

	"gorm.io/gorm"
)

// OpenDatabase connects, migrates and, when configured, seeds the
// ship-to-recipient location rows.
func OpenDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := models.OpenDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		_ = models.CloseDB(db)
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	if cfg.Database.SeedLocations {
		if err := models.SeedLocations(db); err != nil {
			_ = models.CloseDB(db)
			return nil, fmt.Errorf("seed locations: %w", err)
		}
	}
	return db, nil
}

// BuildRunner wires the services the mode asks for around one container.
func BuildRunner(cfg *config.Config, mode string) (*Runner, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if !ValidMode(mode) {
		return nil, fmt.Errorf("unknown mode %q (want all, api or worker)", mode)
	}

	shutdownTracing, err := SetupTracing(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	db, err := OpenDatabase(cfg)
	if err != nil {
		if shutdownTracing != nil {
			_ = shutdownTracing(context.Background())
		}
		return nil, err
	}
	container := provider.NewContainer(cfg, db, metrics.New())

	var services []Service
	if mode == ModeAll || mode == ModeAPI {
		engine := router.SetupRouter(cfg, container)
		services = append(services, NewHTTPService(cfg.Server, engine))
	}
	if mode == ModeAll || mode == ModeWorker {
		workerService, err := worker.NewService(&cfg.Queue, worker.NewConsumer(container))
		if err != nil {
			if mode == ModeWorker {
				container.Close()
				_ = models.CloseDB(db)
				return nil, err
			}
			// without a queue, notifications go out in-process
			logger.Warnw("app_worker_disabled", "error", err)
		} else {
			services = append(services, workerService)
		}
	}

	runner := NewRunner(services...)
	if shutdownTracing != nil {
		runner.OnShutdown(shutdownTracing)
	}
	runner.OnShutdown(func(context.Context) error {
		return models.CloseDB(db)
	})
	runner.OnShutdown(func(context.Context) error {
		container.NotificationService.Wait()
		container.Close()
		return nil
	})
	return runner, nil
}

// Run app entry point
func Run(opts Options) error {
	opts = normalizeOptions(opts)
	if opts.Config == nil {
		return errors.New("config is nil")
	}

	runner, err := BuildRunner(opts.Config, opts.Mode)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(runner.Services()))
	for _, svc := range runner.Services() {
		names = append(names, svc.Name())
	}
	opts.Logger.Infow("app_start", "addr", opts.Config.Server.Addr(), "mode", opts.Mode, "services", names)
	return RunWithOptions(runner, opts)
}
