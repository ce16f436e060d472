package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	ConfigPathEnvVar = "CONFIG_PATH"
	envPrefix        = "MOVIEBOXD_"
)

var DefaultConfigPaths = []string{"config.yaml", "config.yml"}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Redis    RedisConfig    `koanf:"redis"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	OIDC     OIDCConfig     `koanf:"oidc"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port            string        `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	// RateLimit is requests per minute per client IP. Zero disables it.
	RateLimit int `koanf:"rate_limit"`
}

// DatabaseConfig selects the in-memory store when URL is empty.
type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

// RedisConfig enables the catalog cache when Addr is set.
type RedisConfig struct {
	Addr     string        `koanf:"addr"`
	Password string        `koanf:"password"`
	DB       int           `koanf:"db"`
	TLS      bool          `koanf:"tls"`
	TTL      time.Duration `koanf:"ttl"`
}

type TMDBConfig struct {
	BaseURL         string        `koanf:"base_url"`
	APIKey          string        `koanf:"api_key"`
	ReadAccessToken string        `koanf:"read_access_token"`
	Timeout         time.Duration `koanf:"timeout"`
}

type OIDCConfig struct {
	ProviderURL  string `koanf:"provider_url"`
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret"`
	RedirectURL  string `koanf:"redirect_url"`
	// PostLoginURL is where the browser lands after a successful callback.
	PostLoginURL string `koanf:"post_login_url"`
	SecureCookie bool   `koanf:"secure_cookie"`
	// AllowedAudiences lists other client ids whose tokens are accepted.
	AllowedAudiences []string `koanf:"allowed_audiences"`
	// TrustUnverifiedEmail accepts tokens without email_verified=true, for
	// providers that only issue verified addresses and omit the claim.
	TrustUnverifiedEmail bool `koanf:"trust_unverified_email"`
}

func (o OIDCConfig) Enabled() bool {
	return o.ProviderURL != ""
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			CORSOrigins:     []string{"http://localhost:3000"},
			RateLimit:       300,
		},
		Database: DatabaseConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			AutoMigrate:     true,
		},
		Redis: RedisConfig{
			TTL: 10 * time.Minute,
		},
		TMDB: TMDBConfig{
			BaseURL: "https://api.themoviedb.org/3",
			Timeout: 10 * time.Second,
		},
		OIDC: OIDCConfig{
			PostLoginURL: "/",
			SecureCookie: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers defaults, an optional YAML file and environment variables, in
// that order of precedence, then validates the result. A .env file in the
// working directory is read into the environment first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

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

// envMappings lists the environment names understood besides the
// MOVIEBOXD_SECTION_KEY form, kept for existing deployments.
var envMappings = map[string]string{
	"database_url":       "database.url",
	"redis_addr":         "redis.addr",
	"tmdb_api_key":       "tmdb.api_key",
	"tmdb_read_token":    "tmdb.read_access_token",
	"oidc_provider_url":  "oidc.provider_url",
	"oidc_client_id":     "oidc.client_id",
	"oidc_client_secret": "oidc.client_secret",
	"oidc_redirect_url":  "oidc.redirect_url",
	"log_level":          "logging.level",
	"log_format":         "logging.format",
}

var sections = []string{"server", "database", "redis", "tmdb", "oidc", "logging"}

// envTransformFunc maps an environment variable name to a koanf path, or ""
// to ignore it.
//
//	MOVIEBOXD_DATABASE_URL -> database.url
//	MOVIEBOXD_SERVER_CORS_ORIGINS -> server.cors_origins
//	TMDB_API_KEY -> tmdb.api_key
func envTransformFunc(key string) string {
	lower := strings.ToLower(key)
	if rest, ok := strings.CutPrefix(lower, strings.ToLower(envPrefix)); ok {
		for _, s := range sections {
			if field, ok := strings.CutPrefix(rest, s+"_"); ok && field != "" {
				return s + "." + field
			}
		}
		return ""
	}
	return envMappings[lower]
}

var sliceConfigPaths = []string{"server.cors_origins", "oidc.allowed_audiences"}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok {
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

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.TMDB.APIKey == "" && c.TMDB.ReadAccessToken == "" {
		errs = append(errs, errors.New("tmdb.api_key or tmdb.read_access_token is required"))
	}
	if c.OIDC.Enabled() {
		if c.OIDC.ClientID == "" || c.OIDC.ClientSecret == "" || c.OIDC.RedirectURL == "" {
			errs = append(errs, errors.New("oidc.client_id, oidc.client_secret and oidc.redirect_url are required when oidc.provider_url is set"))
		}
	}
	if c.Redis.Addr != "" && c.Redis.TTL <= 0 {
		errs = append(errs, errors.New("redis.ttl must be positive"))
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q must be json or console", c.Logging.Format))
	}
	return errors.Join(errs...)
}
