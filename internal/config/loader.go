package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// Load loads configuration with priority order:
// 1. Environment variables
// 2. Configuration file (config.yaml, or the file named by CONFIG_PATH)
// 3. Default values
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("CONFIG_PATH"))
}

// LoadFrom is Load with an explicit config file. An empty path searches the
// standard locations.
func LoadFrom(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/alertdesk/")
		v.AddConfigPath("./configs/")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("ALERTDESK")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found - continue with env vars and defaults
	}

	overrideWithEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := LoadSecrets(&config); err != nil {
		return nil, err
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// overrideWithEnvVars handles the unprefixed variables container platforms
// commonly inject.
func overrideWithEnvVars(v *viper.Viper) {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			v.Set("port", p)
		}
	}

	if env := os.Getenv("ENVIRONMENT"); env != "" {
		v.Set("environment", env)
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		v.Set("log_level", logLevel)
	}

	if upstream := os.Getenv("UPSTREAM_URL"); upstream != "" {
		v.Set("upstream.url", strings.TrimRight(upstream, "/"))
	}

	if token := os.Getenv("UPSTREAM_TOKEN"); token != "" {
		v.Set("upstream.token", token)
	}

	if cacheNodes := os.Getenv("VALKEY_NODES"); cacheNodes != "" {
		v.Set("cache.nodes", splitList(cacheNodes))
	}

	if cacheTTL := os.Getenv("CACHE_TTL"); cacheTTL != "" {
		if ttl, err := strconv.Atoi(cacheTTL); err == nil {
			v.Set("cache.ttl", ttl)
		}
	}

	if otlp := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); otlp != "" {
		v.Set("monitoring.otlp_endpoint", otlp)
		v.Set("monitoring.tracing_enabled", true)
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}

	validLogLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !contains(validLogLevels, config.LogLevel) {
		return fmt.Errorf("invalid log level: %s", config.LogLevel)
	}

	validEnvironments := []string{"development", "staging", "production", "test"}
	if !contains(validEnvironments, config.Environment) {
		return fmt.Errorf("invalid environment: %s", config.Environment)
	}

	u, err := url.Parse(config.Upstream.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("upstream URL must be absolute: %q", config.Upstream.URL)
	}

	if config.Upstream.Timeout < 1 {
		return fmt.Errorf("upstream timeout must be at least 1ms")
	}

	if config.Environment == "production" && config.Upstream.Token == "" {
		return fmt.Errorf("upstream token is required in production")
	}

	if config.Cache.TTL < 1 {
		return fmt.Errorf("cache TTL must be at least 1 second")
	}

	if config.Monitoring.SampleRatio < 0 || config.Monitoring.SampleRatio > 1 {
		return fmt.Errorf("tracing sample ratio must be between 0 and 1")
	}

	if config.Views.MaxMounted < 1 {
		return fmt.Errorf("views.max_mounted must be at least 1")
	}

	return nil
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
