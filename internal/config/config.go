package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultEnv      = "development"
	defaultDSN      = "root:password@tcp(127.0.0.1:3306)/gran_publicador?charset=utf8mb4&parseTime=True&loc=Local"
	defaultRedisURL = "redis://localhost:6379/0"

	defaultTick        = 30 * time.Second
	defaultLookahead   = time.Minute
	defaultLockTTL     = 2 * time.Minute
	defaultConcurrency = 5
	defaultMaxAttempts = 4
	defaultRetryBase   = 2 * time.Second
	defaultExpireAfter = 24 * time.Hour
)

// DeliveryConfig tunes the scheduler tick and the delivery worker pool.
type DeliveryConfig struct {
	Tick        time.Duration `yaml:"-"`
	Lookahead   time.Duration `yaml:"-"`
	LockTTL     time.Duration `yaml:"-"`
	Concurrency int           `yaml:"concurrency"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryBase   time.Duration `yaml:"-"`
	ExpireAfter time.Duration `yaml:"-"`
}

// ArchiveConfig tunes the periodic state archive job.
type ArchiveConfig struct {
	Enable bool   `yaml:"enable"`
	Dir    string `yaml:"dir"`
	S3     S3Options
}

// S3Options configures optional archive upload to an S3-compatible bucket.
type S3Options struct {
	Enable          bool   `yaml:"enable"`
	Endpoint        string `yaml:"endpoint"`
	Region          string `yaml:"region"`
	Bucket          string `yaml:"bucket"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathTemplate    string `yaml:"path_template"`
	PathStyleAccess bool   `yaml:"path_style_access"`
}

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Env      string         `yaml:"env"` // "development" | "production"
	DSN      string         `yaml:"dsn"` // MySQL DSN
	RedisURL string         `yaml:"redis_url"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Archive  ArchiveConfig  `yaml:"archive"`
}

func (c *AppConfig) IsDev() bool { return c.Env != "production" }

type rawAppConfig struct {
	Env      string `yaml:"env"`
	DSN      string `yaml:"dsn"`
	RedisURL string `yaml:"redis_url"`
	Delivery struct {
		Tick        string `yaml:"tick"`
		Lookahead   string `yaml:"lookahead"`
		LockTTL     string `yaml:"lock_ttl"`
		Concurrency int    `yaml:"concurrency"`
		MaxAttempts int    `yaml:"max_attempts"`
		RetryBase   string `yaml:"retry_base"`
		ExpireAfter string `yaml:"expire_after"`
	} `yaml:"delivery"`
	Archive struct {
		Enable bool      `yaml:"enable"`
		Dir    string    `yaml:"dir"`
		S3     S3Options `yaml:"s3"`
	} `yaml:"archive"`
}

// Load reads and normalizes the YAML config file. A missing file yields the
// defaults rather than an error so the binary can start with env-provided DSNs.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	var raw rawAppConfig
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// fall through to defaults
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := &AppConfig{
		Env:      strings.TrimSpace(raw.Env),
		DSN:      strings.TrimSpace(raw.DSN),
		RedisURL: strings.TrimSpace(raw.RedisURL),
	}
	if cfg.Env == "" {
		if env := strings.TrimSpace(os.Getenv("GP_ENV")); env != "" {
			cfg.Env = env
		} else {
			cfg.Env = defaultEnv
		}
	}
	if cfg.DSN == "" {
		if dsn := strings.TrimSpace(os.Getenv("GP_DSN")); dsn != "" {
			cfg.DSN = dsn
		} else {
			cfg.DSN = defaultDSN
		}
	}
	if cfg.RedisURL == "" {
		if u := strings.TrimSpace(os.Getenv("GP_REDIS_URL")); u != "" {
			cfg.RedisURL = u
		} else {
			cfg.RedisURL = defaultRedisURL
		}
	}

	d := DeliveryConfig{
		Concurrency: raw.Delivery.Concurrency,
		MaxAttempts: raw.Delivery.MaxAttempts,
	}
	if d.Tick, err = durationOrDefault("delivery.tick", raw.Delivery.Tick, defaultTick); err != nil {
		return nil, err
	}
	if d.Lookahead, err = durationOrDefault("delivery.lookahead", raw.Delivery.Lookahead, defaultLookahead); err != nil {
		return nil, err
	}
	if d.LockTTL, err = durationOrDefault("delivery.lock_ttl", raw.Delivery.LockTTL, defaultLockTTL); err != nil {
		return nil, err
	}
	if d.RetryBase, err = durationOrDefault("delivery.retry_base", raw.Delivery.RetryBase, defaultRetryBase); err != nil {
		return nil, err
	}
	if d.ExpireAfter, err = durationOrDefault("delivery.expire_after", raw.Delivery.ExpireAfter, defaultExpireAfter); err != nil {
		return nil, err
	}
	if d.Concurrency <= 0 {
		d.Concurrency = defaultConcurrency
	}
	if d.MaxAttempts <= 0 {
		d.MaxAttempts = defaultMaxAttempts
	}
	cfg.Delivery = d

	cfg.Archive = ArchiveConfig{
		Enable: raw.Archive.Enable,
		Dir:    strings.TrimSpace(raw.Archive.Dir),
		S3:     raw.Archive.S3,
	}
	if cfg.Archive.Dir == "" {
		cfg.Archive.Dir = "./archives"
	}
	if cfg.Archive.S3.PathTemplate == "" {
		cfg.Archive.S3.PathTemplate = "archives/{Y}/{m}/{filename}"
	}

	return cfg, nil
}

func durationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}
