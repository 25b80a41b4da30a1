package config

import "github.com/spf13/viper"

// GetDefaultConfig returns a configuration with all default values
func GetDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Port:        8080,
		LogLevel:    "info",

		Upstream: UpstreamConfig{
			URL:     "http://localhost:8000",
			Timeout: 10000,
		},

		Cache: CacheConfig{
			Nodes: []string{"localhost:6379"},
			TTL:   300,
			DB:    0,
		},

		CORS: CORSConfig{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			ExposedHeaders:   []string{"X-View-ID"},
			AllowCredentials: true,
			MaxAge:           3600,
		},

		WebSocket: WebSocketConfig{
			Enabled:         true,
			MaxConnections:  1000,
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			PingInterval:    30,
		},

		Monitoring: MonitoringConfig{
			Enabled:           true,
			PrometheusEnabled: true,
			TracingEnabled:    false,
			OTLPEndpoint:      "localhost:4317",
			SampleRatio:       1.0,
		},

		Views: ViewsConfig{
			MaxMounted:  500,
			IdleTimeout: 1800,
		},
	}
}

// setDefaults mirrors GetDefaultConfig into viper so env-only deployments
// still resolve every key.
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()

	v.SetDefault("environment", d.Environment)
	v.SetDefault("port", d.Port)
	v.SetDefault("log_level", d.LogLevel)

	v.SetDefault("upstream.url", d.Upstream.URL)
	v.SetDefault("upstream.token", "")
	v.SetDefault("upstream.timeout", d.Upstream.Timeout)

	v.SetDefault("cache.nodes", d.Cache.Nodes)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.db", d.Cache.DB)
	v.SetDefault("cache.password", "")

	v.SetDefault("cors.allowed_origins", d.CORS.AllowedOrigins)
	v.SetDefault("cors.allowed_methods", d.CORS.AllowedMethods)
	v.SetDefault("cors.allowed_headers", d.CORS.AllowedHeaders)
	v.SetDefault("cors.exposed_headers", d.CORS.ExposedHeaders)
	v.SetDefault("cors.allow_credentials", d.CORS.AllowCredentials)
	v.SetDefault("cors.max_age", d.CORS.MaxAge)

	v.SetDefault("websocket.enabled", d.WebSocket.Enabled)
	v.SetDefault("websocket.max_connections", d.WebSocket.MaxConnections)
	v.SetDefault("websocket.read_buffer_size", d.WebSocket.ReadBufferSize)
	v.SetDefault("websocket.write_buffer_size", d.WebSocket.WriteBufferSize)
	v.SetDefault("websocket.ping_interval", d.WebSocket.PingInterval)

	v.SetDefault("monitoring.enabled", d.Monitoring.Enabled)
	v.SetDefault("monitoring.prometheus_enabled", d.Monitoring.PrometheusEnabled)
	v.SetDefault("monitoring.tracing_enabled", d.Monitoring.TracingEnabled)
	v.SetDefault("monitoring.otlp_endpoint", d.Monitoring.OTLPEndpoint)
	v.SetDefault("monitoring.sample_ratio", d.Monitoring.SampleRatio)

	v.SetDefault("views.max_mounted", d.Views.MaxMounted)
	v.SetDefault("views.idle_timeout", d.Views.IdleTimeout)
}
