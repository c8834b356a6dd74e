package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=money_transfer_client;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"

const (
	StateStoreMemory   = "memory"
	StateStoreFile     = "file"
	StateStorePostgres = "postgres"
	StateStoreRedis    = "redis"
)

type Config struct {
	GatewayBaseURL   string        `env:"GATEWAY_BASE_URL" env-default:"http://localhost:8080/api"`
	GatewayTimeout   time.Duration `env:"GATEWAY_TIMEOUT" env-default:"10s"`
	GatewayRateLimit float64       `env:"GATEWAY_RATE_LIMIT" env-default:"10"`
	GatewayBurst     int           `env:"GATEWAY_BURST" env-default:"5"`
	GatewayMaxBody   int64         `env:"GATEWAY_MAX_RESPONSE_BYTES" env-default:"33554432"`

	TransferMaxAttempts    int           `env:"TRANSFER_MAX_ATTEMPTS" env-default:"3"`
	TransferInitialBackoff time.Duration `env:"TRANSFER_INITIAL_BACKOFF" env-default:"200ms"`
	TransferMaxBackoff     time.Duration `env:"TRANSFER_MAX_BACKOFF" env-default:"2s"`
	TransferAttemptTimeout time.Duration `env:"TRANSFER_ATTEMPT_TIMEOUT" env-default:"5s"`

	StateStore    string `env:"STATE_STORE" env-default:"file"`
	StateFile     string `env:"STATE_FILE" env-default:".moneytransfer/state.json"`
	DatabaseDSN   string `env:"DATABASE_DSN"`
	MigrationsDir string `env:"MIGRATIONS_DIR" env-default:"src/migrations"`
	RedisAddr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`
	RedisPrefix   string `env:"REDIS_PREFIX" env-default:"moneytransfer:"`

	LogLevel  string `env:"LOG_LEVEL" env-default:"info"`
	LogFormat string `env:"LOG_FORMAT" env-default:"json"`

	SandboxAddr      string        `env:"SANDBOX_ADDR" env-default:":8080"`
	SandboxJWTSecret string        `env:"SANDBOX_JWT_SECRET" env-default:"sandbox-signing-key"`
	SandboxTokenTTL  time.Duration `env:"SANDBOX_TOKEN_TTL" env-default:"1h"`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c *Config) normalize() error {
	c.GatewayBaseURL = strings.TrimRight(strings.TrimSpace(c.GatewayBaseURL), "/")
	if c.GatewayBaseURL == "" {
		return errors.New("GATEWAY_BASE_URL is required")
	}

	c.StateStore = strings.ToLower(strings.TrimSpace(c.StateStore))
	switch c.StateStore {
	case StateStoreMemory, StateStoreFile, StateStorePostgres, StateStoreRedis:
	default:
		return fmt.Errorf("STATE_STORE %q is not supported", c.StateStore)
	}

	if c.TransferMaxAttempts < 1 {
		c.TransferMaxAttempts = 1
	}

	conn := strings.TrimSpace(c.DatabaseDSN)
	if conn == "" {
		conn = defaultConnectionString
	}
	c.DatabaseDSN = normalizeConnectionString(conn)

	return nil
}

func normalizeConnectionString(raw string) string {
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return raw
	}

	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
