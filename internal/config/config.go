package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR,default=:8080"`
	MySQLDSN        string        `env:"MYSQL_DSN,default=root:root@tcp(localhost:3306)/inventory?parseTime=true"`
	RedisAddr       string        `env:"REDIS_ADDR,default=localhost:6379"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=5s"`
	StockCacheTTL   time.Duration `env:"STOCK_CACHE_TTL,default=5s"`
}

func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.MySQLDSN == "" {
		return fmt.Errorf("MYSQL_DSN is required")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive, got %v", c.ShutdownTimeout)
	}
	if c.StockCacheTTL <= 0 {
		return fmt.Errorf("stock cache TTL must be positive, got %v", c.StockCacheTTL)
	}
	return nil
}
