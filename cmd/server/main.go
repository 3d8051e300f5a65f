package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/hoopday/pickup-stats-backend/internal/config"
	"github.com/hoopday/pickup-stats-backend/internal/httpapi"
	"github.com/hoopday/pickup-stats-backend/internal/hub"
	"github.com/hoopday/pickup-stats-backend/internal/session"
	"github.com/hoopday/pickup-stats-backend/internal/snapshot"
	"github.com/hoopday/pickup-stats-backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	st, err := postgres.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("opening record store failed", zap.Error(err))
	}

	snaps, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		logger.Fatal("opening snapshot store failed", zap.Error(err))
	}
	defer func() { _ = snaps.Close() }()

	ctx := context.Background()
	h := hub.NewHub(ctx, st, snaps, logger, session.WithStaleAfter(cfg.StaleAfter))

	handler := httpapi.SetupRoutes(h, st, snaps)

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
