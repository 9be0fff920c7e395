package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/strayspot/territories/internal/territory"
)

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/strays.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir   string     `env:"SPA_DIR" envDefault:"../web/dist"`
	SeedDemo bool       `env:"SEED_DEMO" envDefault:"false"`

	// RangePolicyFile is an optional YAML table replacing the built-in
	// roaming ranges.
	RangePolicyFile string `env:"RANGE_POLICY_FILE"`

	JWTSecret string        `env:"JWT_SECRET,required"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"24h"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:5174"`
	// AuthRateLimit is requests per minute per IP on /api/auth; 0 disables it.
	AuthRateLimit int `env:"AUTH_RATE_LIMIT" envDefault:"20"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.New("JWT_SECRET must be at least 32 characters")
	}
	return &cfg, nil
}

// RangePolicy returns the configured policy, or the built-in one when no
// file is set.
func (c *Config) RangePolicy() (territory.RangePolicy, error) {
	if c.RangePolicyFile == "" {
		return territory.DefaultRangePolicy(), nil
	}
	return territory.LoadRangePolicy(c.RangePolicyFile)
}
