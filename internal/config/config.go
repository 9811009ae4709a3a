package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognized as overrides over the config file.
const (
	EnvConfigPath    = "CONFIG_PATH"
	EnvDBConnection  = "DB_CONNECTION"
	EnvRedisAddr     = "REDIS_ADDR"
	EnvRedisPassword = "REDIS_PASSWORD"
	EnvJWTSecret     = "JWT_SECRET"
	EnvJWTExpiry     = "JWT_EXPIRY"
)

// ErrMissingDatabaseDSN indicates no database DSN is present in the config.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database.dsn` in config file or DB_CONNECTION)")

// JWTConfig holds JWT secret and expiry settings for admin sessions.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// RedisConfig holds the optional shared cache / limiter backend settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Enabled reports whether a redis backend is configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

// RateLimitConfig holds IP rate limiting settings for public endpoints.
type RateLimitConfig struct {
	Limit  int           `yaml:"limit"`
	Window time.Duration `yaml:"window"`
}

// RecaptchaConfig holds reCAPTCHA verification settings.
type RecaptchaConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Version   string  `yaml:"version"` // v2 or v3
	SiteKey   string  `yaml:"site-key"`
	SecretKey string  `yaml:"secret-key"`
	MinScore  float64 `yaml:"min-score"`
}

// AdminConfig holds the bootstrap admin credentials.
type AdminConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// LocationsConfig points at the reference-data JSON files used by the seeder.
type LocationsConfig struct {
	ProvincesFile string `yaml:"provinces-file"`
	WardsFile     string `yaml:"wards-file"`
}

// Config holds the full service configuration.
type Config struct {
	Database struct {
		DSN string `yaml:"dsn"`
	} `yaml:"database"`
	Redis       RedisConfig     `yaml:"redis"`
	JWT         JWTConfig       `yaml:"jwt"`
	RateLimit   RateLimitConfig `yaml:"rate-limit"`
	Recaptcha   RecaptchaConfig `yaml:"recaptcha"`
	Admin       AdminConfig     `yaml:"admin"`
	Locations   LocationsConfig `yaml:"locations"`
	PhoneLookup struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"phone-lookup"`
}

// Defaults applied when the config file omits values.
const (
	defaultJWTExpiry       = 30 * 24 * time.Hour
	defaultRateLimit       = 10
	defaultRateLimitWindow = 10 * time.Minute
	defaultRecaptchaScore  = 0.5
)

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// Load reads the YAML config file and applies env overrides and defaults.
// A missing file is not an error when DB_CONNECTION is set in the environment.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		if errUnmarshal := yaml.Unmarshal(data, cfg); errUnmarshal != nil {
			return nil, fmt.Errorf("config: parse %s: %w", configPath, errUnmarshal)
		}
	} else if !os.IsNotExist(errRead) {
		return nil, fmt.Errorf("config: read %s: %w", configPath, errRead)
	}

	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		cfg.Database.DSN = dsn
	}
	if addr := strings.TrimSpace(os.Getenv(EnvRedisAddr)); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := strings.TrimSpace(os.Getenv(EnvRedisPassword)); password != "" {
		cfg.Redis.Password = password
	}
	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		cfg.JWT.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			cfg.JWT.Expiry = expiry
		}
	}

	cfg.applyDefaults()

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, ErrMissingDatabaseDSN
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.JWT.Expiry <= 0 {
		c.JWT.Expiry = defaultJWTExpiry
	}
	if c.RateLimit.Limit <= 0 {
		c.RateLimit.Limit = defaultRateLimit
	}
	if c.RateLimit.Window <= 0 {
		c.RateLimit.Window = defaultRateLimitWindow
	}
	if c.Recaptcha.MinScore <= 0 {
		c.Recaptcha.MinScore = defaultRecaptchaScore
	}
	if strings.TrimSpace(c.Recaptcha.Version) == "" {
		c.Recaptcha.Version = "v3"
	}
	if strings.TrimSpace(c.Redis.Prefix) == "" {
		c.Redis.Prefix = "wardrate"
	}
}
