// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Bot         BotConfig         `mapstructure:"bot"`
	Admin       AdminConfig       `mapstructure:"admin"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	Rewards     RewardsConfig     `mapstructure:"rewards"`
	Wallet      WalletConfig      `mapstructure:"wallet"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Log         LogConfig         `mapstructure:"log"`
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// BotConfig holds Telegram bot configuration. An empty token disables the bot.
type BotConfig struct {
	Token        string  `mapstructure:"token"`
	AllowedChats []int64 `mapstructure:"allowed_chats"`
}

// AdminConfig lists the accounts granted the administrator capability at
// startup: Telegram user ids and identity-provider account ids.
type AdminConfig struct {
	TelegramIDs []int64  `mapstructure:"telegram_ids"`
	AccountIDs  []string `mapstructure:"account_ids"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds the leaderboard cache connection. An empty address
// disables the cache.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AuthConfig holds identity token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// PaymentConfig holds external payment provider settings.
type PaymentConfig struct {
	BaseURL         string        `mapstructure:"base_url"`
	SecretKey       string        `mapstructure:"secret_key"`
	CallbackBaseURL string        `mapstructure:"callback_base_url"`
	ReturnURL       string        `mapstructure:"return_url"`
	Currency        string        `mapstructure:"currency"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MinDeposit      string        `mapstructure:"min_deposit"`
}

// RewardsConfig holds daily streak and free-play settings.
type RewardsConfig struct {
	Timezone       string `mapstructure:"timezone"`
	DailyBonus     string `mapstructure:"daily_bonus"`
	StreakLength   int    `mapstructure:"streak_length"`
	FreeGamePoints int64  `mapstructure:"free_game_points"`
}

// WalletConfig holds defaults applied to lazily created wallets.
type WalletConfig struct {
	DailyTransferLimit string `mapstructure:"daily_transfer_limit"`
	Currency           string `mapstructure:"currency"`
}

// LeaderboardConfig holds the recompute schedule.
type LeaderboardConfig struct {
	Schedule string `mapstructure:"schedule"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, sslMode,
	)
}

// IsChatAllowed checks if a group chat ID is in the whitelist.
func (b *BotConfig) IsChatAllowed(chatID int64) bool {
	// Empty whitelist means all chats are allowed
	if len(b.AllowedChats) == 0 {
		return true
	}
	for _, id := range b.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

// Location returns the server-authoritative time zone for calendar dates.
func (r *RewardsConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid rewards.timezone %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory. A .env file in the
// working directory is loaded first, if present.
func Load(configPath string) (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g., DATABASE_HOST, PAYMENT_SECRET_KEY, AUTH_JWT_SECRET
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise fail later at first use.
func (c *Config) Validate() error {
	if _, err := c.Rewards.Location(); err != nil {
		return err
	}
	for name, raw := range map[string]string{
		"payment.min_deposit":         c.Payment.MinDeposit,
		"rewards.daily_bonus":         c.Rewards.DailyBonus,
		"wallet.daily_transfer_limit": c.Wallet.DailyTransferLimit,
	} {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
		if d.IsNegative() {
			return fmt.Errorf("invalid %s %q: must not be negative", name, raw)
		}
	}
	if c.Rewards.StreakLength < 1 {
		return fmt.Errorf("invalid rewards.streak_length %d: must be at least 1", c.Rewards.StreakLength)
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit_rps", 5)
	v.SetDefault("server.rate_limit_burst", 10)

	v.SetDefault("bot.token", "")
	v.SetDefault("bot.allowed_chats", []int64{})

	v.SetDefault("admin.telegram_ids", []int64{})
	v.SetDefault("admin.account_ids", []string{})

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "bingo")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "bingo")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.pool_size", 20)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "1h")

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("payment.base_url", "https://api.chapa.co/v1")
	v.SetDefault("payment.secret_key", "")
	v.SetDefault("payment.callback_base_url", "http://localhost:8080")
	v.SetDefault("payment.return_url", "http://localhost:5173/payment-complete")
	v.SetDefault("payment.currency", "ETB")
	v.SetDefault("payment.timeout", "15s")
	v.SetDefault("payment.min_deposit", "10")

	v.SetDefault("rewards.timezone", "UTC")
	v.SetDefault("rewards.daily_bonus", "10")
	v.SetDefault("rewards.streak_length", 3)
	v.SetDefault("rewards.free_game_points", 10)

	v.SetDefault("wallet.daily_transfer_limit", "1000")
	v.SetDefault("wallet.currency", "ETB")

	v.SetDefault("leaderboard.schedule", "@every 15m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}
