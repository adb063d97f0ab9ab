package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/videotheque/config.yaml",
}

const ConfigPathEnvVar = "CONFIG_PATH"

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	TMDB     TMDBConfig     `koanf:"tmdb"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type StorageConfig struct {
	DataDir string `koanf:"data_dir"`
	// CoverDir defaults to <data_dir>/covers.
	CoverDir string `koanf:"cover_dir"`
	// SweepInterval of zero disables the orphan cover sweep.
	SweepInterval time.Duration `koanf:"sweep_interval"`
	SweepGrace    time.Duration `koanf:"sweep_grace"`
}

type TMDBConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Language          string        `koanf:"language"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
}

type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	MinPasswordLength int           `koanf:"min_password_length"`
	// RequireComplexPassword asks for three of upper, lower, digit and symbol.
	RequireComplexPassword bool          `koanf:"require_complex_password"`
	CORSOrigins            []string      `koanf:"cors_origins"`
	AuthRateLimit          int           `koanf:"auth_rate_limit"`
	AuthRateWindow         time.Duration `koanf:"auth_rate_window"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			DataDir:       "data",
			SweepInterval: 6 * time.Hour,
			SweepGrace:    time.Hour,
		},
		TMDB: TMDBConfig{
			BaseURL:           "https://api.themoviedb.org/3",
			Language:          "fr-FR",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 20,
			Burst:             5,
		},
		Security: SecurityConfig{
			TokenTTL:          24 * time.Hour,
			MinPasswordLength: 6,
			CORSOrigins:       []string{"*"},
			AuthRateLimit:     10,
			AuthRateWindow:    time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load layers defaults, an optional YAML file and the environment, in that
// order of precedence.
func Load() (*Config, error) {
	return load(findConfigFile())
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	if cfg.Storage.CoverDir == "" {
		cfg.Storage.CoverDir = filepath.Join(cfg.Storage.DataDir, "covers")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	if c.Storage.DataDir == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	if c.Security.JWTSecret == "" {
		errs = append(errs, errors.New("security.jwt_secret is required (JWT_SECRET)"))
	}
	if c.Security.TokenTTL <= 0 {
		errs = append(errs, errors.New("security.token_ttl must be positive"))
	}
	if c.Storage.SweepInterval < 0 || c.Storage.SweepGrace < 0 {
		errs = append(errs, errors.New("storage sweep durations must not be negative"))
	}
	if c.TMDB.RequestsPerSecond < 0 {
		errs = append(errs, errors.New("tmdb.requests_per_second must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// MetadataEnabled reports whether discovery routes can reach the provider.
func (c *Config) MetadataEnabled() bool {
	return c.TMDB.APIKey != ""
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values into lists.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"port":             "server.port",
	"host":             "server.host",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",

	"data_dir":             "storage.data_dir",
	"cover_dir":            "storage.cover_dir",
	"cover_sweep_interval": "storage.sweep_interval",
	"cover_sweep_grace":    "storage.sweep_grace",

	"tmdb_api_key":  "tmdb.api_key",
	"tmdb_base_url": "tmdb.base_url",
	"tmdb_language": "tmdb.language",
	"tmdb_timeout":  "tmdb.timeout",
	"tmdb_rps":      "tmdb.requests_per_second",
	"tmdb_burst":    "tmdb.burst",

	"jwt_secret":               "security.jwt_secret",
	"token_ttl":                "security.token_ttl",
	"min_password_length":      "security.min_password_length",
	"require_complex_password": "security.require_complex_password",
	"cors_origins":             "security.cors_origins",
	"auth_rate_limit":          "security.auth_rate_limit",
	"auth_rate_window":         "security.auth_rate_window",

	"log_level":  "logging.level",
	"log_format": "logging.format",
}

// envTransformFunc maps known variables to config keys. Anything else is
// dropped so unrelated environment does not leak into the config.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
