package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
)

// App holds core runtime configuration shared across services.
type App struct {
	Name                    string        `env:"APP_NAME" envDefault:"quizdoc"`
	Env                     string        `env:"APP_ENV" envDefault:"development"`
	LogLevel                string        `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr                string        `env:"HTTP_ADDR" envDefault:"0.0.0.0:8080"`
	GracefulShutdownTimeout time.Duration `env:"GRACEFUL_SHUTDOWN_SECONDS" envDefault:"20s"`

	Postgres Postgres
	Redis    Redis
	Security Security
	BinHost  BinHost
	Publish  Publish
	Registry Registry
}

// Postgres captures connection info for the SQL database.
type Postgres struct {
	Host     string `env:"PG_HOST,notEmpty"`
	Port     int    `env:"PG_PORT" envDefault:"5432"`
	User     string `env:"PG_USER,notEmpty"`
	Password string `env:"PG_PASSWORD,notEmpty"`
	Database string `env:"PG_DATABASE,notEmpty"`
	SSLMode  string `env:"PG_SSL_MODE" envDefault:"disable"`
}

// Redis holds cache + pub/sub configuration.
type Redis struct {
	Addr     string `env:"REDIS_ADDR,notEmpty"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	PoolSize int    `env:"REDIS_POOL_SIZE" envDefault:"20"`
}

// Security stores secrets for token signing and the operator key.
type Security struct {
	TokenSecret  string        `env:"TOKEN_SECRET,notEmpty"`
	AdminKeyHash string        `env:"ADMIN_KEY_HASH,notEmpty"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"12h"`
}

// BinHost configures the JSON bin service documents are published to.
type BinHost struct {
	BaseURL     string        `env:"BIN_BASE_URL" envDefault:"https://api.npoint.io"`
	APIToken    string        `env:"BIN_API_TOKEN"`
	HTTPTimeout time.Duration `env:"BIN_HTTP_TIMEOUT" envDefault:"10s"`
}

// Publish governs the background publish worker.
type Publish struct {
	QueueSize  int           `env:"PUBLISH_QUEUE_SIZE" envDefault:"64"`
	JobTimeout time.Duration `env:"PUBLISH_JOB_TIMEOUT" envDefault:"30s"`
}

// Registry governs registry caching and update fan-out.
type Registry struct {
	CacheTTL      time.Duration `env:"REGISTRY_CACHE_TTL" envDefault:"5m"`
	UpdateChannel string        `env:"REGISTRY_UPDATE_CHANNEL" envDefault:"registry:updates"`
}

// ConnString builds a pgx-compatible connection string.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=10",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

// Load parses environment variables into App config.
func Load(ctx context.Context) (*App, error) {
	cfg := &App{}
	if err := env.ParseWithOptions(cfg, env.Options{RequiredIfNoDef: true}); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
