package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/MrJamesThe3rd/ledgersync/internal/database"
)

type Config struct {
	App struct {
		Name string `envconfig:"APP_NAME" default:"LedgerSync"`
		Port int    `envconfig:"PORT" default:"8080"`
	}

	DB struct {
		Host            string        `envconfig:"DB_HOST" default:"localhost"`
		Port            int           `envconfig:"DB_PORT" default:"5432"`
		User            string        `envconfig:"DB_USER" default:"postgres"`
		Password        string        `envconfig:"DB_PASSWORD" default:""`
		Name            string        `envconfig:"DB_NAME" default:"ledgersync"`
		MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
		MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
		ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"5m"`
		AutoMigrate     bool          `envconfig:"DB_AUTO_MIGRATE" default:"true"`
	}

	Server struct {
		Timeout        time.Duration `envconfig:"SERVER_TIMEOUT" default:"30s"`
		AllowedOrigins []string      `envconfig:"SERVER_ALLOWED_ORIGINS" default:"*"`
	}

	Backup struct {
		Dir  string `envconfig:"BACKUP_DIR" default:"./backups"`
		Keep int    `envconfig:"BACKUP_KEEP" default:"20"`
	}

	Sync struct {
		// RequireBackup aborts Execute before any mutation when the backup cannot be written.
		RequireBackup bool `envconfig:"SYNC_REQUIRE_BACKUP" default:"false"`
	}

	Auth struct {
		Secret   string        `envconfig:"AUTH_SECRET"`
		TokenTTL time.Duration `envconfig:"AUTH_TOKEN_TTL" default:"720h"`
	}

	Cache struct {
		Enabled     bool  `envconfig:"CACHE_ENABLED" default:"true"`
		NumCounters int64 `envconfig:"CACHE_NUM_COUNTERS" default:"10000"`
		MaxCost     int64 `envconfig:"CACHE_MAX_COST" default:"1000"`
	}
}

func (c *Config) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DB.User, c.DB.Password, c.DB.Host, c.DB.Port, c.DB.Name)
}

func (c *Config) Pool() database.PoolConfig {
	return database.PoolConfig{
		MaxOpenConns:    c.DB.MaxOpenConns,
		MaxIdleConns:    c.DB.MaxIdleConns,
		ConnMaxLifetime: c.DB.ConnMaxLifetime,
	}
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
