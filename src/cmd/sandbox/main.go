package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/moneytransfer/src/internal/adapter/http/middleware"
	"github.com/api-sage/moneytransfer/src/internal/adapter/http/router"
	"github.com/api-sage/moneytransfer/src/internal/config"
	"github.com/api-sage/moneytransfer/src/internal/logger"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
	"github.com/api-sage/moneytransfer/src/internal/sandbox"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("init logger: %v", err)
	}

	ledger := sandbox.NewLedger()
	if err := ledger.SeedDefaults(); err != nil {
		log.Fatalf("seed ledger: %v", err)
	}

	auth, err := middleware.NewBearerAuth(cfg.SandboxJWTSecret, cfg.SandboxTokenTTL)
	if err != nil {
		log.Fatalf("init bearer auth: %v", err)
	}

	server := &http.Server{
		Addr:              cfg.SandboxAddr,
		Handler:           router.NewSandbox(ledger, auth, metrics.New()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	go func() {
		logger.Info("sandbox backend listening", logger.Fields{"addr": cfg.SandboxAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("sandbox backend stopped", err, nil)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down sandbox backend", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("sandbox shutdown", err, nil)
	}
}
