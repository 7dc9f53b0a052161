package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	JWTSecret   string `env:"JWT_SECRET,required,notEmpty"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	AccessTokenTTL          time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"1h"`
	RefreshTokenTTL         time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"24h"`
	RevocationSweepInterval time.Duration `env:"REVOCATION_SWEEP_INTERVAL" envDefault:"5m"`
	BcryptCost              int           `env:"BCRYPT_COST" envDefault:"12"`

	TxMaxAmount         decimal.Decimal `env:"TX_MAX_AMOUNT" envDefault:"1000000"`
	TxMaxTransferAmount decimal.Decimal `env:"TX_MAX_TRANSFER_AMOUNT" envDefault:"100000"`

	AuthRateLimitRPS   float64 `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int     `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	if !cfg.TxMaxAmount.IsPositive() || !cfg.TxMaxTransferAmount.IsPositive() {
		return nil, fmt.Errorf("config.Load: transaction limits must be positive")
	}
	if cfg.AuthRateLimitRPS <= 0 || cfg.AuthRateLimitBurst <= 0 {
		return nil, fmt.Errorf("config.Load: auth rate limit must be positive")
	}
	if cfg.AccessTokenTTL <= 0 || cfg.RefreshTokenTTL <= 0 || cfg.RevocationSweepInterval <= 0 {
		return nil, fmt.Errorf("config.Load: token TTLs and sweep interval must be positive")
	}
	if cfg.AccessTokenTTL%time.Second != 0 || cfg.RefreshTokenTTL%time.Second != 0 {
		return nil, fmt.Errorf("config.Load: token TTLs must be whole seconds")
	}
	return &cfg, nil
}

// Limits are the per-transaction caps enforced by the ledger.
type Limits struct {
	MaxAmount         decimal.Decimal
	MaxTransferAmount decimal.Decimal
}

func (c *Config) Limits() Limits {
	return Limits{
		MaxAmount:         c.TxMaxAmount,
		MaxTransferAmount: c.TxMaxTransferAmount,
	}
}
