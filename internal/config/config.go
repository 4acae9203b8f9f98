package config

import (
	"flag"
	"fmt"
	"net/url"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type AppConfig struct {
	Env     string `yaml:"env" env:"FREELANCE_ENV" env-default:"dev"`
	BaseURL string `yaml:"base_url" env:"FREELANCE_BASE_URL"`

	Store StoreConfig `yaml:"store"`
}

type StoreConfig struct {
	Kind      string `yaml:"kind" env:"FREELANCE_STORE" env-default:"file"`
	Path      string `yaml:"path" env:"FREELANCE_STORE_PATH" env-default:"./freelance-session.yaml"`
	RedisAddr string `yaml:"redis_addr" env:"FREELANCE_REDIS_ADDR" env-default:"localhost:6379"`
	RedisDB   int    `yaml:"redis_db" env:"FREELANCE_REDIS_DB" env-default:"0"`
	Profile   string `yaml:"profile" env:"FREELANCE_PROFILE" env-default:"default"`
}

// Load reads .env, then the YAML config (if any), then environment overrides.
func Load() (*AppConfig, error) {
	// .env is optional
	_ = godotenv.Load()

	return LoadPath(fetchConfigPath())
}

// LoadPath reads the config file at path; an empty path means environment only.
func LoadPath(path string) (*AppConfig, error) {
	var cfg AppConfig

	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("FREELANCE_BASE_URL (base_url) must be set")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base_url %q", c.BaseURL)
	}

	switch c.Store.Kind {
	case StoreFile:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path must be set for file store")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr must be set for redis store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	return nil
}

// fetchConfigPath fetches config path from command line flag or environment variable.
// Priority: flag > env > default.
// Default value is empty string.
func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}
	return res
}
