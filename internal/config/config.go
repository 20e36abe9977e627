package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file is used.
// The YAML parser also accepts JSON documents.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"config.json",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Mongo    MongoConfig    `koanf:"mongo"`
	Postgres PostgresConfig `koanf:"postgres"`
	Redis    RedisConfig    `koanf:"redis"`
	Auth     AuthConfig     `koanf:"auth"`
	Gemini   GeminiConfig   `koanf:"gemini"`
	LocalLLM LocalLLMConfig `koanf:"local_llm"`
	Uploads  UploadsConfig  `koanf:"uploads"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port        string        `koanf:"port"`
	CORSOrigins []string      `koanf:"cors_origins"`
	Timeout     time.Duration `koanf:"timeout"`
	AITimeout   time.Duration `koanf:"ai_timeout"`
}

// StorageConfig selects the persistence backend: "mongo" or "postgres".
type StorageConfig struct {
	Driver string `koanf:"driver"`
}

type MongoConfig struct {
	URI      string `koanf:"uri"`
	Database string `koanf:"database"`
}

type PostgresConfig struct {
	URL string `koanf:"url"`
}

// RedisConfig points at the token revocation store. An empty address disables it.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type AuthConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
}

// GeminiConfig lists the candidate models, tried in order.
type GeminiConfig struct {
	APIKey string   `koanf:"api_key"`
	Models []string `koanf:"models"`
}

// LocalLLMConfig adds an OpenAI-compatible endpoint as the last candidate when URL is set.
type LocalLLMConfig struct {
	URL   string `koanf:"url"`
	Model string `koanf:"model"`
}

type UploadsConfig struct {
	Dir       string `koanf:"dir"`
	PublicURL string `koanf:"public_url"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "5000",
			CORSOrigins: []string{"http://localhost:5173"},
			Timeout:     5 * time.Second,
			AITimeout:   90 * time.Second,
		},
		Storage: StorageConfig{Driver: "mongo"},
		Mongo: MongoConfig{
			URI:      "mongodb://localhost:27017",
			Database: "recipes",
		},
		Auth: AuthConfig{TokenTTL: 30 * 24 * time.Hour},
		Gemini: GeminiConfig{
			Models: []string{
				"gemini-flash-latest",
				"gemini-1.5-flash",
				"gemini-pro",
				"gemini-1.5-pro-latest",
			},
		},
		LocalLLM: LocalLLMConfig{Model: "gemma-3-12b-it:2"},
		Uploads: UploadsConfig{
			Dir:       "images",
			PublicURL: "/images",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

var envMappings = map[string]string{
	"port":            "server.port",
	"cors_origins":    "server.cors_origins",
	"storage_driver":  "storage.driver",
	"mongo_uri":       "mongo.uri",
	"mongo_database":  "mongo.database",
	"database_url":    "postgres.url",
	"redis_addr":      "redis.addr",
	"redis_password":  "redis.password",
	"redis_db":        "redis.db",
	"jwt_secret":      "auth.jwt_secret",
	"token_ttl":       "auth.token_ttl",
	"gemini_api_key":  "gemini.api_key",
	"gemini_models":   "gemini.models",
	"local_llm_url":   "local_llm.url",
	"local_llm_model": "local_llm.model",
	"uploads_dir":     "uploads.dir",
	"log_level":       "logging.level",
	"log_format":      "logging.format",
	"ai_timeout":      "server.ai_timeout",
	"request_timeout": "server.timeout",
	"uploads_url":     "uploads.public_url",
}

var sliceConfigPaths = []string{
	"server.cors_origins",
	"gemini.models",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// Load builds Config from defaults, an optional config file, then environment
// variables, in increasing priority.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// processSliceFields splits comma-separated strings coming from the environment.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.Storage.Driver {
	case "mongo":
		if c.Mongo.URI == "" {
			return errors.New("MONGO_URI is required for the mongo driver")
		}
	case "postgres":
		if c.Postgres.URL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if len(c.Gemini.Models) == 0 && c.LocalLLM.URL == "" {
		return errors.New("at least one AI candidate must be configured")
	}
	return nil
}
