// Package config loads runtime settings from .env files and SLOTFLOW_*
// environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/aretw0/slotflow/pkg/adapters/redis"
)

// Prefix of every environment variable.
const Prefix = "SLOTFLOW"

// Store backends.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Graph source kinds.
const (
	SourceAuto = "auto"
	SourceFile = "file"
	SourceLoam = "loam"
)

// Config defines all configurable parameters of the service and the CLI.
type Config struct {
	// Graph is a graph file, a directory of graph files or a Loam repository.
	Graph  string `default:"bot.yaml"`
	Source string `default:"auto"`
	Watch  bool

	Addr      string `default:":8080"`
	LogLevel  string `split_words:"true" default:"info"`
	LogFormat string `split_words:"true" default:"text"`

	Store      string `default:"memory"`
	SessionDir string `split_words:"true" default:".slotflow/sessions"`
	Redis      redis.Config
	LockTTL    time.Duration `split_words:"true" default:"30s"`

	ClassifierTimeout time.Duration `split_words:"true" default:"5s"`
	ActionTimeout     time.Duration `split_words:"true" default:"10s"`
	MinScore          float64       `split_words:"true"`

	// EncryptionKey is a base64 32-byte key; empty disables encryption.
	EncryptionKey string   `split_words:"true"`
	FallbackKeys  []string `split_words:"true"`
	PIIKeys       []string `envconfig:"PII_KEYS"`

	MaxInputBytes int    `split_words:"true" default:"4096"`
	CORSOrigin    string `envconfig:"CORS_ORIGIN" default:"*"`
}

// Load reads the given .env files (missing files are skipped; ".env" when
// none is given) and then processes the environment. Variables already set
// in the environment win over .env values.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated values and cross-field requirements.
func (c Config) Validate() error {
	switch c.Store {
	case StoreMemory, StoreFile:
	case StoreRedis:
		if !c.Redis.Enabled() {
			return errors.New("store redis requires SLOTFLOW_REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown store %q", c.Store)
	}
	switch c.Source {
	case SourceAuto, SourceFile, SourceLoam:
	default:
		return fmt.Errorf("unknown graph source %q", c.Source)
	}
	if len(c.FallbackKeys) > 0 && c.EncryptionKey == "" {
		return errors.New("fallback keys require an encryption key")
	}
	return nil
}

// Usage prints the supported environment variables.
func Usage() error {
	var cfg Config
	return envconfig.Usage(Prefix, &cfg)
}
