package app

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the application.
type Config struct {
	AppEnv            string        `envconfig:"APP_ENV" default:"development"`
	AppAddr           string        `envconfig:"APP_ADDR" default:":8080"`
	AppReadTimeout    time.Duration `envconfig:"APP_READ_TIMEOUT" default:"15s"`
	AppWriteTimeout   time.Duration `envconfig:"APP_WRITE_TIMEOUT" default:"90s"`
	AppRequestTimeout time.Duration `envconfig:"APP_REQUEST_TIMEOUT" default:"30s"`

	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// PGDSN is optional; without it the lead register is disabled.
	PGDSN      string `envconfig:"PG_DSN"`
	PGMaxConns int32  `envconfig:"PG_MAX_CONNS" default:"10"`

	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"127.0.0.1:6379"`
	SessionSecret string        `envconfig:"SESSION_SECRET" required:"true"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	CSRFSecret string `envconfig:"CSRF_SECRET" required:"true"`

	SMTPHost string `envconfig:"SMTP_HOST" default:"127.0.0.1"`
	SMTPPort int    `envconfig:"SMTP_PORT" default:"1025"`
	SMTPFrom string `envconfig:"SMTP_FROM" default:"contact@perfiamatic.com"`

	GotenbergURL     string        `envconfig:"GOTENBERG_URL" default:"http://127.0.0.1:3000"`
	GotenbergTimeout time.Duration `envconfig:"GOTENBERG_TIMEOUT" default:"30s"`

	WebhookURL   string        `envconfig:"N8N_WEBHOOK_URL" default:"https://n8n.srv939707.hstgr.cloud/webhook/audit-flash"`
	RelayTimeout time.Duration `envconfig:"RELAY_TIMEOUT" default:"55s"`
	ResultTTL    time.Duration `envconfig:"RESULT_TTL" default:"24h"`

	ReportStorageDir  string        `envconfig:"REPORT_STORAGE_DIR" default:"./var/reports"`
	ReportRetention   time.Duration `envconfig:"REPORT_RETENTION" default:"720h"`
	WorkerConcurrency int           `envconfig:"WORKER_CONCURRENCY" default:"4"`
	WorkerMetricsAddr string        `envconfig:"WORKER_METRICS_ADDR" default:":9091"`
	ContactEmail      string        `envconfig:"CONTACT_EMAIL" default:"contact@perfiamatic.com"`

	AdminUser         string `envconfig:"ADMIN_USER" default:"admin"`
	AdminPasswordHash string `envconfig:"ADMIN_PASSWORD_HASH"`
}

// LoadConfig reads configuration from environment variables, after
// preloading a .env file when one is present. Variables already set in the
// environment win over the file.
func LoadConfig() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret must be provided")
	}
	if cfg.CSRFSecret == "" {
		return nil, errors.New("csrf secret must be provided")
	}
	if cfg.RelayTimeout <= 0 {
		return nil, errors.New("relay timeout must be positive")
	}
	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// IsProduction returns true when the application runs in production.
func (c *Config) IsProduction() bool {
	return c != nil && c.AppEnv == "production"
}

// LeadsEnabled reports whether a database is configured.
func (c *Config) LeadsEnabled() bool {
	return c != nil && c.PGDSN != ""
}
