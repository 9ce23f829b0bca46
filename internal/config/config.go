package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	Endpoint   EndpointConfig
	Normalizer NormalizerConfig
	Extractor  ExtractorConfig
	Session    SessionConfig
	Auth       AuthConfig
	CORS       CORSConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// EndpointConfig holds settings for the external audit endpoint.
type EndpointConfig struct {
	URL           string        `mapstructure:"url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxFileSizeMB int64         `mapstructure:"max_file_size_mb"`
	MaxReplyMB    int64         `mapstructure:"max_reply_mb"`
	Source        string        `mapstructure:"source"`
	SubmitAsText  bool          `mapstructure:"submit_as_text"`
	AuthHeader    string        `mapstructure:"auth_header"`
	AuthToken     string        `mapstructure:"auth_token"`
}

// MaxFileSizeBytes returns the binary payload ceiling in bytes.
func (e *EndpointConfig) MaxFileSizeBytes() int64 {
	return e.MaxFileSizeMB * 1024 * 1024
}

// MaxReplyBytes returns the maximum number of reply bytes read from the endpoint.
func (e *EndpointConfig) MaxReplyBytes() int64 {
	return e.MaxReplyMB * 1024 * 1024
}

// NormalizerConfig holds response normalization settings.
type NormalizerConfig struct {
	// DemoFallback substitutes a fixed demonstration finding set when the
	// endpoint returns no structured results. Never enable in production.
	DemoFallback   bool `mapstructure:"demo_fallback"`
	RawPassthrough bool `mapstructure:"raw_passthrough"`
}

// ExtractorConfig holds PDF text extraction settings.
type ExtractorConfig struct {
	Pdftotext string `mapstructure:"pdftotext"`
}

// SessionConfig holds audit session lifecycle settings.
type SessionConfig struct {
	TTL           time.Duration `mapstructure:"ttl"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

// AuthConfig holds the bearer token check settings.
type AuthConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
	Audience  string `mapstructure:"audience"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from environment variables with the MEDAUDIT_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MEDAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults. The write timeout must outlast the endpoint deadline.
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "6m")
	v.SetDefault("server.environment", "development")

	// Endpoint defaults
	v.SetDefault("endpoint.url", "")
	v.SetDefault("endpoint.timeout", "5m")
	v.SetDefault("endpoint.max_file_size_mb", 10)
	v.SetDefault("endpoint.max_reply_mb", 16)
	v.SetDefault("endpoint.source", "Antishtraf AI - Medical Report Audit")
	v.SetDefault("endpoint.submit_as_text", false)
	v.SetDefault("endpoint.auth_header", "")
	v.SetDefault("endpoint.auth_token", "")

	// Normalizer defaults
	v.SetDefault("normalizer.demo_fallback", false)
	v.SetDefault("normalizer.raw_passthrough", false)

	// Extractor defaults
	v.SetDefault("extractor.pdftotext", "pdftotext")

	// Session defaults
	v.SetDefault("session.ttl", "1h")
	v.SetDefault("session.sweep_interval", "5m")

	// Auth defaults
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "medaudit")
	v.SetDefault("auth.audience", "access")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                "MEDAUDIT_SERVER_PORT",
		"server.read_timeout":        "MEDAUDIT_SERVER_READ_TIMEOUT",
		"server.write_timeout":       "MEDAUDIT_SERVER_WRITE_TIMEOUT",
		"server.environment":         "MEDAUDIT_SERVER_ENVIRONMENT",
		"endpoint.url":               "MEDAUDIT_ENDPOINT_URL",
		"endpoint.timeout":           "MEDAUDIT_ENDPOINT_TIMEOUT",
		"endpoint.max_file_size_mb":  "MEDAUDIT_ENDPOINT_MAX_FILE_SIZE_MB",
		"endpoint.max_reply_mb":      "MEDAUDIT_ENDPOINT_MAX_REPLY_MB",
		"endpoint.source":            "MEDAUDIT_ENDPOINT_SOURCE",
		"endpoint.submit_as_text":    "MEDAUDIT_ENDPOINT_SUBMIT_AS_TEXT",
		"endpoint.auth_header":       "MEDAUDIT_ENDPOINT_AUTH_HEADER",
		"endpoint.auth_token":        "MEDAUDIT_ENDPOINT_AUTH_TOKEN",
		"normalizer.demo_fallback":   "MEDAUDIT_NORMALIZER_DEMO_FALLBACK",
		"normalizer.raw_passthrough": "MEDAUDIT_NORMALIZER_RAW_PASSTHROUGH",
		"extractor.pdftotext":        "MEDAUDIT_EXTRACTOR_PDFTOTEXT",
		"session.ttl":                "MEDAUDIT_SESSION_TTL",
		"session.sweep_interval":     "MEDAUDIT_SESSION_SWEEP_INTERVAL",
		"auth.enabled":               "MEDAUDIT_AUTH_ENABLED",
		"auth.jwt_secret":            "MEDAUDIT_AUTH_JWT_SECRET",
		"auth.issuer":                "MEDAUDIT_AUTH_ISSUER",
		"auth.audience":              "MEDAUDIT_AUTH_AUDIENCE",
		"cors.allowed_origins":       "MEDAUDIT_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if MEDAUDIT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("MEDAUDIT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.Endpoint = EndpointConfig{
		URL:           v.GetString("endpoint.url"),
		Timeout:       v.GetDuration("endpoint.timeout"),
		MaxFileSizeMB: v.GetInt64("endpoint.max_file_size_mb"),
		MaxReplyMB:    v.GetInt64("endpoint.max_reply_mb"),
		Source:        v.GetString("endpoint.source"),
		SubmitAsText:  v.GetBool("endpoint.submit_as_text"),
		AuthHeader:    v.GetString("endpoint.auth_header"),
		AuthToken:     v.GetString("endpoint.auth_token"),
	}
	cfg.Normalizer = NormalizerConfig{
		DemoFallback:   v.GetBool("normalizer.demo_fallback"),
		RawPassthrough: v.GetBool("normalizer.raw_passthrough"),
	}
	cfg.Extractor = ExtractorConfig{
		Pdftotext: v.GetString("extractor.pdftotext"),
	}
	cfg.Session = SessionConfig{
		TTL:           v.GetDuration("session.ttl"),
		SweepInterval: v.GetDuration("session.sweep_interval"),
	}
	cfg.Auth = AuthConfig{
		Enabled:   v.GetBool("auth.enabled"),
		JWTSecret: v.GetString("auth.jwt_secret"),
		Issuer:    v.GetString("auth.issuer"),
		Audience:  v.GetString("auth.audience"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: corsOrigins,
	}

	return cfg, nil
}
