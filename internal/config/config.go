package config

import "time"

type Config struct {
	Environment string `mapstructure:"environment" yaml:"environment"`
	Port        int    `mapstructure:"port" yaml:"port"`
	LogLevel    string `mapstructure:"log_level" yaml:"log_level"`

	Upstream   UpstreamConfig   `mapstructure:"upstream" yaml:"upstream"`
	Cache      CacheConfig      `mapstructure:"cache" yaml:"cache"`
	CORS       CORSConfig       `mapstructure:"cors" yaml:"cors"`
	WebSocket  WebSocketConfig  `mapstructure:"websocket" yaml:"websocket"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" yaml:"monitoring"`
	Views      ViewsConfig      `mapstructure:"views" yaml:"views"`
}

// UpstreamConfig points at the incident backend whose REST API the
// presenters call.
type UpstreamConfig struct {
	URL     string `mapstructure:"url" yaml:"url"`
	Token   string `mapstructure:"token" yaml:"token"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"` // milliseconds
}

func (u UpstreamConfig) TimeoutDuration() time.Duration {
	return time.Duration(u.Timeout) * time.Millisecond
}

// CacheConfig handles Valkey caching of upstream metadata. One node uses the
// single-node client, several use the cluster client, none keeps everything
// in process.
type CacheConfig struct {
	Nodes    []string `mapstructure:"nodes" yaml:"nodes"`
	TTL      int      `mapstructure:"ttl" yaml:"ttl"` // seconds
	Password string   `mapstructure:"password" yaml:"password"`
	DB       int      `mapstructure:"db" yaml:"db"`
}

func (c CacheConfig) TTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// CORSConfig handles Cross-Origin Resource Sharing
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age"`
}

// WebSocketConfig handles the view snapshot stream
type WebSocketConfig struct {
	Enabled         bool `mapstructure:"enabled" yaml:"enabled"`
	MaxConnections  int  `mapstructure:"max_connections" yaml:"max_connections"`
	ReadBufferSize  int  `mapstructure:"read_buffer_size" yaml:"read_buffer_size"`
	WriteBufferSize int  `mapstructure:"write_buffer_size" yaml:"write_buffer_size"`
	PingInterval    int  `mapstructure:"ping_interval" yaml:"ping_interval"` // seconds
}

type MonitoringConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled"`
	PrometheusEnabled bool    `mapstructure:"prometheus_enabled" yaml:"prometheus_enabled"`
	TracingEnabled    bool    `mapstructure:"tracing_enabled" yaml:"tracing_enabled"`
	OTLPEndpoint      string  `mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	SampleRatio       float64 `mapstructure:"sample_ratio" yaml:"sample_ratio"`
}

// ViewsConfig bounds the mounted-view registry.
type ViewsConfig struct {
	MaxMounted  int `mapstructure:"max_mounted" yaml:"max_mounted"`
	IdleTimeout int `mapstructure:"idle_timeout" yaml:"idle_timeout"` // seconds, 0 disables
}
