package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/api-sage/moneytransfer/src/internal/adapter/gateway"
	"github.com/api-sage/moneytransfer/src/internal/adapter/repository/file"
	"github.com/api-sage/moneytransfer/src/internal/adapter/repository/memory"
	"github.com/api-sage/moneytransfer/src/internal/adapter/repository/postgres"
	"github.com/api-sage/moneytransfer/src/internal/adapter/repository/redis"
	"github.com/api-sage/moneytransfer/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/moneytransfer/src/internal/config"
	"github.com/api-sage/moneytransfer/src/internal/logger"
	"github.com/api-sage/moneytransfer/src/internal/metrics"
	"github.com/api-sage/moneytransfer/src/internal/usecase/services"
)

type app struct {
	sessions  *services.SessionService
	accounts  *services.AccountService
	transfers *services.TransferService
	out       io.Writer
	closers   []func() error
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	// stdout carries command output only.
	logger.SetOutput(os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		log.Fatalf("start: %v", err)
	}

	code := a.run(ctx, os.Args[1], os.Args[2:])
	a.close()
	os.Exit(code)
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{out: os.Stdout}

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		a.close()
		return nil, err
	}

	m := metrics.New()

	var sessions *services.SessionService
	client, err := gateway.New(gateway.Config{
		BaseURL:          cfg.GatewayBaseURL,
		Timeout:          cfg.GatewayTimeout,
		RateLimit:        cfg.GatewayRateLimit,
		Burst:            cfg.GatewayBurst,
		MaxResponseBytes: cfg.GatewayMaxBody,
		Metrics:          m,
	}, gateway.TokenFunc(func() string {
		return sessions.Token()
	}))
	if err != nil {
		a.close()
		return nil, err
	}

	sessions, err = services.NewSessionService(ctx, store, client, m)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("load session: %w", err)
	}

	accounts := services.NewAccountService(client, sessions, m)
	a.closers = append(a.closers, func() error {
		accounts.Close()
		return nil
	})

	policy := services.DefaultRetryPolicy()
	policy.MaxAttempts = cfg.TransferMaxAttempts
	policy.InitialBackoff = cfg.TransferInitialBackoff
	policy.MaxBackoff = cfg.TransferMaxBackoff
	policy.AttemptTimeout = cfg.TransferAttemptTimeout

	a.sessions = sessions
	a.accounts = accounts
	a.transfers = services.NewTransferService(client, sessions, accounts, policy, m)
	return a, nil
}

func (a *app) openStore(ctx context.Context, cfg config.Config) (repo_interfaces.KeyValueStore, error) {
	switch cfg.StateStore {
	case config.StateStoreMemory:
		return memory.NewKeyValueStore(), nil
	case config.StateStoreFile:
		return file.NewKeyValueStore(cfg.StateFile)
	case config.StateStorePostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		return postgres.NewKeyValueStore(db), nil
	case config.StateStoreRedis:
		store, err := redis.Open(ctx, redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported state store %q", cfg.StateStore)
	}
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Error("transferctl close", err, nil)
		}
	}
	a.closers = nil
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: transferctl <command> [flags]

commands:
  login     -user ID -password SECRET
  logout
  whoami
  balance   [-refresh]
  history   [-refresh] [-direction all|debit|credit]
  transfer  -to ID -amount AMOUNT [-remarks TEXT] [-key KEY]`)
}
