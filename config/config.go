package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel          string `env:"LOG_LEVEL"`
	Postgres          Postgres
	Redis             Redis
	HTTP              HTTP
	Cache             Cache
	Jobs              Jobs
	Ledger            Ledger
	Notifier          Notifier
	Reports           Reports
	GoogleDrive       GoogleDrive
	Seed              Seed
	SessionExpiration time.Duration `env:"SESSION_EXPIRATION"`
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	PoolMax         int    `env:"PG_POOL_MAX"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME"`
	MigrationDir    string `env:"PG_MIGRATION_DIR"`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB"`
}

type HTTP struct {
	Host            string        `env:"HTTP_HOST"`
	Port            int           `env:"HTTP_PORT"`
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT"`
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT"`
	Debug           bool          `env:"HTTP_DEBUG" envDefault:"false"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION"`
}

type Jobs struct {
	FillQuoteCacheInterval   time.Duration `env:"FILL_QUOTE_CACHE_JOB_INTERVAL"`
	DeleteOldReportsInterval time.Duration `env:"DELETE_OLD_REPORTS_JOB_INTERVAL" envDefault:"24h"`
}

type Ledger struct {
	WriteRetries      int           `env:"LEDGER_WRITE_RETRIES"`
	WriteRetryBackoff time.Duration `env:"LEDGER_WRITE_RETRY_BACKOFF"`
}

type Notifier struct {
	Driver         string        `env:"NOTIFIER_DRIVER" envDefault:"off"`
	WebhookURL     string        `env:"NOTIFIER_WEBHOOK_URL" envDefault:""`
	WebhookTimeout time.Duration `env:"NOTIFIER_WEBHOOK_TIMEOUT" envDefault:"5s"`
}

type Reports struct {
	Currency string `env:"REPORTS_CURRENCY" envDefault:"INR"`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"168h"`
}

type Seed struct {
	Enabled bool   `env:"SEED_ENABLED" envDefault:"false"`
	File    string `env:"SEED_FILE" envDefault:""`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
