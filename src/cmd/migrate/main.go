package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/api-sage/moneytransfer/src/internal/adapter/repository/postgres"
	"github.com/api-sage/moneytransfer/src/internal/config"
	"github.com/api-sage/moneytransfer/src/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(ctx, db, os.DirFS(cfg.MigrationsDir)); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	logger.Info("client state migrations completed successfully", logger.Fields{
		"dir": cfg.MigrationsDir,
	})
}
