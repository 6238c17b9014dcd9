// Package config handles loading and parsing application configuration.
// It supports two sources (in priority order):
//  1. An environment variable:  CONFIG_PATH=/path/to/config.yaml
//  2. A command-line flag:      --config=/path/to/config.yaml
//
// Before either is consulted an optional .env file in the working
// directory is loaded into the process environment, so every env:"..."
// override below can also live in .env during local development.
package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Session backends understood by SessionConfig.Backend.
const (
	SessionBackendSQLite = "sqlite"
	SessionBackendRedis  = "redis"
	SessionBackendBolt   = "bolt"
)

// Config is the root configuration structure.
// Every field maps to a key in the YAML file AND can be overridden
// by the corresponding environment variable (env:"...").
type Config struct {
	// Env controls log format and verbosity.
	// Valid values: "dev", "staging", "prod"
	Env string `yaml:"env" env:"ENV" env-required:"true"`

	// StoragePath is the filesystem path to the SQLite .db file.
	StoragePath string `yaml:"storage_path" env:"STORAGE_PATH" env-required:"true"`

	HTTPServer `yaml:"http_server"`
	Session    SessionConfig  `yaml:"session"`
	Redis      RedisConfig    `yaml:"redis"`
	Bolt       BoltConfig     `yaml:"bolt"`
	Security   SecurityConfig `yaml:"security"`
}

// HTTPServer holds settings specific to the HTTP server.
type HTTPServer struct {
	// Addr is the TCP address the server listens on, e.g. "localhost:5000".
	Addr         string        `yaml:"address" env:"HTTP_SERVER_ADDR" env-required:"true"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_SERVER_WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" env:"HTTP_SERVER_IDLE_TIMEOUT" env-default:"60s"`
}

// SessionConfig controls where browser sessions live and how the
// cookie is issued.
type SessionConfig struct {
	// Backend is "sqlite" (sessions table next to users/questions),
	// "redis" (see RedisConfig) or "bolt" (see BoltConfig).
	Backend    string `yaml:"backend" env:"SESSION_BACKEND" env-default:"sqlite"`
	CookieName string `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"edutestor_session"`
	// TTL is an idle timeout refreshed on every save. Zero keeps
	// sessions until logout.
	TTL          time.Duration `yaml:"ttl" env:"SESSION_TTL" env-default:"0s"`
	SecureCookie bool          `yaml:"secure_cookie" env:"SESSION_SECURE_COOKIE" env-default:"false"`
}

// RedisConfig is only read when Session.Backend is "redis".
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// BoltConfig is only read when Session.Backend is "bolt".
type BoltConfig struct {
	Path string `yaml:"path" env:"BOLT_PATH" env-default:"storage/sessions.db"`
}

// SecurityConfig holds password hashing and API token parameters.
type SecurityConfig struct {
	// BcryptCost of 0 means bcrypt.DefaultCost.
	BcryptCost int `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"0"`
	// JWTSecret signs API bearer tokens. Empty means a random secret per
	// process start.
	JWTSecret string        `yaml:"jwt_secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env:"TOKEN_TTL" env-default:"24h"`
}

// MustLoad reads, validates, and returns the application config.
// Functions prefixed with "Must" are allowed to fatal on failure: if this
// function returns, the config is valid.
func MustLoad() *Config {
	// A missing .env is the normal case outside local development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("cannot read .env: %s", err.Error())
	}

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to the configuration YAML file")
		flag.Parse()
		configPath = *flags
	}

	if configPath == "" {
		log.Fatal("config path is not set: use --config flag or CONFIG_PATH env var")
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatal(err.Error())
	}

	return cfg
}

// Load reads the YAML file at path, applies env overrides and checks the
// values MustLoad would otherwise fatal on.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", path)
	}

	var cfg Config
	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("cannot read config: %w", err)
	}

	switch cfg.Session.Backend {
	case SessionBackendSQLite, SessionBackendRedis, SessionBackendBolt:
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	return &cfg, nil
}
