// Package config loads the service configuration. Values are layered:
// built-in defaults, then an optional YAML file, then environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the location of the YAML file.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultConfigPaths are tried in order when ConfigPathEnvVar is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
}

type Config struct {
	Kakao    KakaoConfig    `koanf:"kakao"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Alert    AlertConfig    `koanf:"alert"`
	Log      LogConfig      `koanf:"log"`
	Map      MapConfig      `koanf:"map"`
}

type KakaoConfig struct {
	APIKey            string        `koanf:"api_key"`
	BaseURL           string        `koanf:"base_url"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
}

type ServerConfig struct {
	Port string `koanf:"port"`
}

// DatabaseConfig points at the Postgres database holding the studies. An
// empty URL makes the service run on an in-memory store.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

type AlertConfig struct {
	WebhookURL string `koanf:"webhook_url"`
}

type LogConfig struct {
	Level string `koanf:"level"`
	Debug bool   `koanf:"debug"`
}

type MapConfig struct {
	Latitude    float64 `koanf:"latitude"`
	Longitude   float64 `koanf:"longitude"`
	Level       int     `koanf:"level"`
	HomeAddress string  `koanf:"home_address"`
	// Geocoder picks the backend resolving addresses: "kakao" or
	// "openstreetmap".
	Geocoder string `koanf:"geocoder"`
}

const (
	GeocoderKakao         = "kakao"
	GeocoderOpenstreetmap = "openstreetmap"
)

func defaultConfig() *Config {
	return &Config{
		Kakao: KakaoConfig{
			BaseURL:           "https://dapi.kakao.com",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 10,
		},
		Server: ServerConfig{
			Port: "8080",
		},
		Log: LogConfig{
			Level: "info",
		},
		Map: MapConfig{
			Latitude:  37.4981588,
			Longitude: 127.0278715,
			Level:     3,
			Geocoder:  GeocoderKakao,
		},
	}
}

// Load builds the configuration and validates it.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

var envMappings = map[string]string{
	"kakao_api_key":             "kakao.api_key",
	"kakao_base_url":            "kakao.base_url",
	"kakao_timeout":             "kakao.timeout",
	"kakao_requests_per_second": "kakao.requests_per_second",
	"port":                      "server.port",
	"database_url":              "database.url",
	"alert_webhook_url":         "alert.webhook_url",
	"log_level":                 "log.level",
	"log_debug":                 "log.debug",
	"map_latitude":              "map.latitude",
	"map_longitude":             "map.longitude",
	"map_level":                 "map.level",
	"home_address":              "map.home_address",
	"geocoder":                  "map.geocoder",
}

// envTransformFunc maps known variables to config paths. Anything else is
// skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

func (c *Config) Validate() error {
	var errs []error

	if c.Kakao.APIKey == "" {
		errs = append(errs, errors.New("missing KAKAO_API_KEY"))
	}

	if c.Kakao.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("kakao timeout must be positive, got %s", c.Kakao.Timeout))
	}

	if c.Kakao.RequestsPerSecond < 0 {
		errs = append(errs, fmt.Errorf("kakao requests per second must not be negative, got %v", c.Kakao.RequestsPerSecond))
	}

	if c.Map.Latitude < -90 || c.Map.Latitude > 90 {
		errs = append(errs, fmt.Errorf("map latitude out of range: %v", c.Map.Latitude))
	}

	if c.Map.Longitude < -180 || c.Map.Longitude > 180 {
		errs = append(errs, fmt.Errorf("map longitude out of range: %v", c.Map.Longitude))
	}

	if c.Map.Level < 1 || c.Map.Level > 14 {
		errs = append(errs, fmt.Errorf("map level must be between 1 and 14, got %d", c.Map.Level))
	}

	if c.Map.Geocoder != GeocoderKakao && c.Map.Geocoder != GeocoderOpenstreetmap {
		errs = append(errs, fmt.Errorf("unknown geocoder %q", c.Map.Geocoder))
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		errs = append(errs, fmt.Errorf("parse log level: %w", err))
	}

	return errors.Join(errs...)
}

// SlogLevel is the configured log level. Debug wins over Level.
func (c *Config) SlogLevel() slog.Level {
	if c.Log.Debug {
		return slog.LevelDebug
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}

	return level
}
