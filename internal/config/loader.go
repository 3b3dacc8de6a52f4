package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TRADEDESK_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TRADEDESK_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Database ──
	setStr(&cfg.Database.DSN, "TRADEDESK_DATABASE_DSN")
	setStr(&cfg.Database.Host, "TRADEDESK_DATABASE_HOST")
	setInt(&cfg.Database.Port, "TRADEDESK_DATABASE_PORT")
	setStr(&cfg.Database.Database, "TRADEDESK_DATABASE_NAME")
	setStr(&cfg.Database.User, "TRADEDESK_DATABASE_USER")
	setStr(&cfg.Database.Password, "TRADEDESK_DATABASE_PASSWORD")
	setStr(&cfg.Database.SSLMode, "TRADEDESK_DATABASE_SSLMODE")
	setInt(&cfg.Database.PoolMaxConns, "TRADEDESK_DATABASE_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "TRADEDESK_DATABASE_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "TRADEDESK_DATABASE_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "TRADEDESK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TRADEDESK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TRADEDESK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "TRADEDESK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "TRADEDESK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "TRADEDESK_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "TRADEDESK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TRADEDESK_S3_REGION")
	setStr(&cfg.S3.Bucket, "TRADEDESK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TRADEDESK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TRADEDESK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "TRADEDESK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "TRADEDESK_S3_FORCE_PATH_STYLE")

	// ── Alpaca ──
	setStr(&cfg.Alpaca.BaseURL, "TRADEDESK_ALPACA_BASE_URL")
	setStr(&cfg.Alpaca.ApiKey, "TRADEDESK_ALPACA_API_KEY")
	setStr(&cfg.Alpaca.ApiSecret, "TRADEDESK_ALPACA_API_SECRET")

	// ── Screener ──
	setStr(&cfg.Screener.BaseURL, "TRADEDESK_SCREENER_BASE_URL")

	// ── Trading ──
	setStr(&cfg.Trading.StartingCash, "TRADEDESK_TRADING_STARTING_CASH")

	// ── Market data ──
	setDuration(&cfg.MarketData.CacheTTL, "TRADEDESK_MARKET_DATA_CACHE_TTL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "TRADEDESK_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "TRADEDESK_ARCHIVE_RETENTION_DAYS")
	setDuration(&cfg.Archive.Interval, "TRADEDESK_ARCHIVE_INTERVAL")

	// ── Server ──
	setInt(&cfg.Server.Port, "TRADEDESK_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "TRADEDESK_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.ApiKey, "TRADEDESK_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "TRADEDESK_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateWindow, "TRADEDESK_SERVER_RATE_WINDOW")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "TRADEDESK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
