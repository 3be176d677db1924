package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mboahomes/trust-engine/internal/cache"
	"github.com/mboahomes/trust-engine/internal/directory"
	"github.com/mboahomes/trust-engine/internal/locality"
	"github.com/mboahomes/trust-engine/internal/scoring"
	"github.com/mboahomes/trust-engine/internal/stats"
	"github.com/mboahomes/trust-engine/internal/store"
)

// engineEnv bundles the wired engine components for a command invocation.
type engineEnv struct {
	Store     store.Store
	Calc      *scoring.Calculator
	Scheduler *cache.Scheduler
	Directory *directory.Engine
	Stats     *stats.Aggregator
}

// initEngine opens the store and wires the scoring, cache, directory and
// stats components from config.
func initEngine(ctx context.Context) (*engineEnv, error) {
	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	weights, err := scoring.LoadWeights(cfg.Scoring.WeightsFile)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := scoring.ValidateWeights(weights); err != nil {
		st.Close()
		return nil, err
	}

	ttl := time.Duration(cfg.Cache.TTLDays) * 24 * time.Hour
	calc := scoring.NewCalculator(weights, ttl)

	scheduler := cache.NewScheduler(st, cache.StoreFactsSource{Store: st}, calc, cache.Config{
		BatchConcurrency: cfg.Cache.BatchConcurrency,
		ItemTimeout:      time.Duration(cfg.Cache.ItemTimeoutSecs) * time.Second,
		FactsRatePerSec:  cfg.Cache.FactsRatePerSec,
	})
	checker := locality.NewChecker(st, cfg.Scoring.LocalityRadiusKM)
	scheduler.SetFactsAdjuster(checker.AdjustFacts)

	return &engineEnv{
		Store:     st,
		Calc:      calc,
		Scheduler: scheduler,
		Directory: directory.NewEngine(st),
		Stats:     stats.NewAggregator(st),
	}, nil
}

// openStore creates the configured store backend.
func openStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (e *engineEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}
