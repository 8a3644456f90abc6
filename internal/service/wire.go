package service

import (
	"context"
	"fmt"
	"log/slog"

	"preflight/internal/config"
	"preflight/internal/notify"
	"preflight/internal/provider"
	"preflight/internal/storage"
)

// FromConfig opens every collaborator the configuration asks for and returns
// the service plus a function that releases them. On error nothing is left
// open.
func FromConfig(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Service, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	engine, err := cfg.Engine()
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Service, func(), error) {
		cleanup()
		return nil, nil, err
	}

	var refs provider.ReferenceStore
	store, err := storage.OpenReferenceStore(ctx, cfg.StoreBackend, cfg.Storage)
	if err != nil {
		return fail(fmt.Errorf("open reference store: %w", err))
	}
	if store != nil {
		refs = store
		closers = append(closers, func() {
			if err := store.Close(); err != nil {
				logger.Warn("close reference store", slog.Any("error", err))
			}
		})
		logger.Info("reference store ready", slog.String("backend", cfg.StoreBackend))
	}

	svc := New(provider.NewGatherer(cfg.Provider, refs, logger), engine, logger)
	svc.DefaultUnit = cfg.DistUnit

	if cfg.ArchiveWeather {
		ch, err := storage.OpenClickHouse(ctx, cfg.Storage.ClickHouse)
		if err != nil {
			return fail(fmt.Errorf("open weather archive: %w", err))
		}
		closers = append(closers, func() { _ = ch.Close() })
		if err := ch.CreateSchema(ctx); err != nil {
			return fail(fmt.Errorf("weather archive schema: %w", err))
		}
		svc.Archive = ch
		logger.Info("weather archive ready", slog.String("host", cfg.Storage.ClickHouse.Host))
	}

	if cfg.NATSURL != "" {
		pub, err := notify.Connect(cfg.NATSURL, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, pub.Close)
		svc.Publisher = pub
		logger.Info("publishing advisories", slog.String("nats", cfg.NATSURL))
	}

	return svc, cleanup, nil
}
