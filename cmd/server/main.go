package main

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/algo-arena/arena-server/internal/config"
	"github.com/algo-arena/arena-server/internal/engine"
	"github.com/algo-arena/arena-server/internal/httpapi"
	"github.com/algo-arena/arena-server/internal/hub"
	"github.com/algo-arena/arena-server/internal/judge"
	"github.com/algo-arena/arena-server/internal/problems"
	"github.com/algo-arena/arena-server/internal/registry"
	"github.com/algo-arena/arena-server/internal/stats"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := config.Load()
	ctx := context.Background()

	var recorder stats.Recorder
	if cfg.DatabaseDSN != "" {
		store, err := stats.OpenGorm(cfg.DatabaseDSN, logger)
		if err != nil {
			logger.Fatal("failed to open stats database", zap.Error(err))
		}
		recorder = store
	} else {
		logger.Warn("no DATABASE_DSN set, match history kept in memory")
		recorder = stats.NewMemoryStore()
	}

	catalog := problems.NewCatalog()
	policy := engine.StartPolicy{MinMembers: cfg.MinMembers}
	h := hub.NewHub(ctx, catalog, recorder, policy, logger)
	reg := registry.New(logger)
	gateway := judge.NewGateway(cfg.JudgeURL, cfg.JudgeTimeout, catalog, logger)

	handler := httpapi.SetupRoutes(httpapi.Deps{
		Hub:      h,
		Registry: reg,
		Catalog:  catalog,
		Judge:    gateway,
		Stats:    recorder,
		Logger:   logger,
	})

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
