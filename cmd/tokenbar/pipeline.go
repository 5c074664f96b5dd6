package main

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/tokenbar/tokenbar/internal/config"
	"github.com/tokenbar/tokenbar/internal/filecache"
	"github.com/tokenbar/tokenbar/internal/history"
	"github.com/tokenbar/tokenbar/internal/ingest"
	"github.com/tokenbar/tokenbar/internal/pricing"
	"github.com/tokenbar/tokenbar/internal/refresh"
)

// pipeline bundles the scan stack behind one constructor so the monitor
// and the one-shot report assemble it identically.
type pipeline struct {
	controller *refresh.Controller
	cache      *filecache.Cache
	store      *history.Store
}

// buildPipeline wires cache, ingest engine, pricing and the refresh
// controller from the loaded config. withHistory opens the snapshot
// store; the report skips it. A store that fails to open degrades to no
// persistence rather than failing the command.
func buildPipeline(cfg config.Config, logger *slog.Logger, withHistory bool) *pipeline {
	cache := filecache.New(filepath.Join(cfg.CacheDir, "logs"), int64(cfg.MemoryCacheMB)<<20, logger)
	engine := ingest.NewEngine(cache, 0, logger)

	resolver := pricing.NewResolver(pricing.Options{
		URL:       cfg.PricingURL,
		TTL:       time.Duration(cfg.PricingTTLHours) * time.Hour,
		CachePath: filepath.Join(cfg.CacheDir, "pricing.json"),
		Logger:    logger,
	})
	mode, err := pricing.ParseMode(cfg.CostMode)
	if err != nil {
		mode = pricing.ModeAuto
	}

	var store *history.Store
	if withHistory {
		store = openHistory(logger)
	}

	controller := refresh.NewController(refresh.Options{
		Roots:      cfg.DataDirs,
		Horizon:    time.Duration(cfg.MaxFileAgeDays) * 24 * time.Hour,
		Interval:   time.Duration(cfg.RefreshIntervalSeconds) * time.Second,
		Engine:     engine,
		Resolver:   resolver,
		Calculator: pricing.NewCalculator(resolver, mode),
		History:    store,
		Logger:     logger,
	})

	return &pipeline{controller: controller, cache: cache, store: store}
}

func openHistory(logger *slog.Logger) *history.Store {
	path, err := history.DefaultDBPath()
	if err != nil {
		logger.Debug("history disabled", "error", err)
		return nil
	}
	store, err := history.OpenStore(path)
	if err != nil {
		logger.Debug("history disabled", "error", err)
		return nil
	}
	return store
}

func (p *pipeline) Close() {
	if p.store != nil {
		p.store.Close()
	}
}
