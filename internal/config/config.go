package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultSessionTTL = 10 * time.Hour

type Config struct {
	APIBaseURL  string        `yaml:"api_base_url"`
	ListenAddr  string        `yaml:"listen_addr"`
	LogLevel    string        `yaml:"log_level"`
	HTTPTimeout time.Duration `yaml:"http_timeout"`
	SessionTTL  time.Duration `yaml:"session_ttl"`

	StorageDriver string `yaml:"storage_driver"`
	StorageDSN    string `yaml:"storage_dsn"`
	RedisURL      string `yaml:"redis_url"`

	KafkaBrokers []string `yaml:"kafka_brokers"`

	ESURL      string `yaml:"es_url"`
	ESUser     string `yaml:"es_user"`
	ESPassword string `yaml:"es_password"`
	ESIndex    string `yaml:"es_index"`
}

func defaults() Config {
	return Config{
		ListenAddr:    ":8081",
		SessionTTL:    DefaultSessionTTL,
		StorageDriver: "sqlite",
		StorageDSN:    "foodclient.db",
		ESIndex:       "foods",
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// FOODCLIENT_CONFIG and finally the environment (.env included).
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Notice: .env file not found: %v. Using system environment variables", err)
	}

	cfg := defaults()
	if path := os.Getenv("FOODCLIENT_CONFIG"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	cfg.APIBaseURL = EnvDefault("API_BASE_URL", cfg.APIBaseURL)
	cfg.ListenAddr = EnvDefault("LISTEN_ADDR", cfg.ListenAddr)
	cfg.LogLevel = EnvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.HTTPTimeout = EnvDurationDefault("HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.SessionTTL = EnvDurationDefault("SESSION_TTL", cfg.SessionTTL)

	cfg.StorageDriver = EnvDefault("STORAGE_DRIVER", cfg.StorageDriver)
	cfg.StorageDSN = EnvDefault("STORAGE_DSN", cfg.StorageDSN)
	cfg.RedisURL = EnvDefault("REDIS_URL", cfg.RedisURL)

	if brokers := CSV(os.Getenv("KAFKA_BROKERS")); len(brokers) > 0 {
		cfg.KafkaBrokers = brokers
	}

	cfg.ESURL = EnvDefault("ES_URL", cfg.ESURL)
	cfg.ESUser = EnvDefault("ES_USER", cfg.ESUser)
	cfg.ESPassword = EnvDefault("ES_PASSWORD", cfg.ESPassword)
	cfg.ESIndex = EnvDefault("ES_INDEX", cfg.ESIndex)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return errors.New("missing required env API_BASE_URL")
	}
	switch c.StorageDriver {
	case "sqlite", "postgres", "memory":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("STORAGE_DRIVER=redis requires REDIS_URL")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive, got %s", c.SessionTTL)
	}
	return nil
}
