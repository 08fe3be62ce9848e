package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the dashboard server configuration.
type Config struct {
	Port              string
	APIBaseURL        string
	APITimeout        time.Duration
	SessionCookie     string
	LoginPath         string
	BasePath          string
	ManifestPath      string
	ChartCacheTTL     time.Duration
	EChartsAssetsHost string
	LogLevel          slog.Level
	ActivityEnabled   bool
}

var defaults = map[string]any{
	"PORT":                "8080",
	"API_BASE_URL":        "http://localhost:5000/api",
	"API_TIMEOUT":         "10s",
	"SESSION_COOKIE":      "agency_token",
	"LOGIN_PATH":          "/login",
	"BASE_PATH":           "/dashboard",
	"MANIFEST_PATH":       "",
	"CHART_CACHE_TTL":     "5m",
	"ECHARTS_ASSETS_HOST": "",
	"LOG_LEVEL":           "info",
	"ACTIVITY_ENABLED":    true,
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; configFile, when set, is read by
// viper and overridden by real environment variables.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}
	v.AutomaticEnv()

	apiTimeout, err := duration(v, "API_TIMEOUT")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := duration(v, "CHART_CACHE_TTL")
	if err != nil {
		return nil, err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("LOG_LEVEL"))); err != nil {
		return nil, fmt.Errorf("config: LOG_LEVEL: %w", err)
	}

	cfg := &Config{
		Port:              v.GetString("PORT"),
		APIBaseURL:        strings.TrimRight(v.GetString("API_BASE_URL"), "/"),
		APITimeout:        apiTimeout,
		SessionCookie:     v.GetString("SESSION_COOKIE"),
		LoginPath:         v.GetString("LOGIN_PATH"),
		BasePath:          v.GetString("BASE_PATH"),
		ManifestPath:      v.GetString("MANIFEST_PATH"),
		ChartCacheTTL:     cacheTTL,
		EChartsAssetsHost: v.GetString("ECHARTS_ASSETS_HOST"),
		LogLevel:          level,
		ActivityEnabled:   v.GetBool("ACTIVITY_ENABLED"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.APIBaseURL) == "" {
		errs = append(errs, errors.New("config: API_BASE_URL is required"))
	}
	if c.APITimeout <= 0 {
		errs = append(errs, errors.New("config: API_TIMEOUT must be positive"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("config: PORT is required"))
	}
	if c.SessionCookie == "" {
		errs = append(errs, errors.New("config: SESSION_COOKIE is required"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address for Port.
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: invalid duration %q", key, raw)
	}
	return d, nil
}
