// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// RootDomain is the apex domain all tenant subdomains hang off (e.g. "example.com").
	// Required in production; empty enables local-host mode where the whole Host maps to the root tenant.
	RootDomain string `mapstructure:"ROOT_DOMAIN"`
	// DatabaseURL is the Postgres DSN for the session/user/audit store.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// RedisAddr is the Redis host:port for rate-limit counters; empty falls back to the in-process limiter.
	RedisAddr string `mapstructure:"REDIS_ADDR"`
	// RedisPassword is the optional Redis AUTH password.
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// CookieName is the session cookie name (e.g. "ec_session").
	CookieName string `mapstructure:"COOKIE_NAME"`
	// SessionTTLRaw is the session lifetime (e.g. "168h"); also used as the cookie Max-Age.
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// SessionKeys is the token keyring: comma-separated "kid:hex32" pairs (e.g. "1:ab..ef,2:01..23").
	SessionKeys string `mapstructure:"SESSION_KEYS"`
	// SessionActiveKid selects which keyring entry encodes new tokens; all entries decode.
	SessionActiveKid string `mapstructure:"SESSION_ACTIVE_KID"`

	// AssertionPublicKey is the PEM-encoded public key (RSA or ECDSA) or a path to one; verifies
	// the signed identity assertion the credential collaborator hands to POST /auth/login.
	AssertionPublicKey string `mapstructure:"ASSERTION_PUBLIC_KEY"`
	// AssertionIssuer is the expected iss claim on identity assertions.
	AssertionIssuer string `mapstructure:"ASSERTION_ISSUER"`
	// AssertionAudience is the expected aud claim on identity assertions.
	AssertionAudience string `mapstructure:"ASSERTION_AUDIENCE"`

	// GateConfigPath points at the YAML file with the static tenant table and role permissions.
	GateConfigPath string `mapstructure:"GATE_CONFIG"`

	// RateLimitThreshold is the number of auth attempts allowed per key per window.
	RateLimitThreshold int `mapstructure:"RATE_LIMIT_THRESHOLD"`
	// RateLimitWindowRaw is the fixed-window size for auth rate limiting (e.g. "15m").
	RateLimitWindowRaw string `mapstructure:"RATE_LIMIT_WINDOW"`
	// StoreTimeoutRaw bounds each session/user/audit store round trip (e.g. "3s").
	StoreTimeoutRaw string `mapstructure:"STORE_TIMEOUT"`

	// OTLPEndpoint is the OTLP collector endpoint for traces/metrics/logs; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints (standard OTEL_EXPORTER_OTLP_INSECURE).
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	// Production requires ROOT_DOMAIN and marks the session cookie Secure.
	Env string `mapstructure:"APP_ENV"`

	// Telemetry pipeline (optional). When Kafka brokers are set, the gate also emits
	// security events to Kafka for the worker to forward.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for gate security events (default gate-telemetry).
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`
	// LokiURL is the Loki base URL the telemetry worker pushes to (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("ROOT_DOMAIN", "")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("COOKIE_NAME", "ec_session")
	v.SetDefault("SESSION_TTL", "168h") // 7d
	v.SetDefault("SESSION_KEYS", "")
	v.SetDefault("SESSION_ACTIVE_KID", "")
	v.SetDefault("ASSERTION_PUBLIC_KEY", "")
	v.SetDefault("ASSERTION_ISSUER", "edustack-id")
	v.SetDefault("ASSERTION_AUDIENCE", "edustack-gate")
	v.SetDefault("GATE_CONFIG", "gate.yaml")
	v.SetDefault("RATE_LIMIT_THRESHOLD", 5)
	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("STORE_TIMEOUT", "3s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "gate-telemetry")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "gate-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if cfg.CookieName == "" {
		return nil, errors.New("config: COOKIE_NAME must be set")
	}
	if cfg.Production() && cfg.RootDomain == "" {
		return nil, errors.New("config: ROOT_DOMAIN must be set when APP_ENV=production")
	}
	if cfg.RateLimitThreshold <= 0 {
		return nil, fmt.Errorf("config: RATE_LIMIT_THRESHOLD must be positive, got %d", cfg.RateLimitThreshold)
	}

	return &cfg, nil
}

// Production reports whether APP_ENV is "production".
func (c *Config) Production() bool {
	return strings.EqualFold(strings.TrimSpace(c.Env), "production")
}

// SessionTTL parses SESSION_TTL as a time.Duration. Returns 168h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 168 * time.Hour
	}
	return d
}

// RateLimitWindow parses RATE_LIMIT_WINDOW as a time.Duration. Returns 15m if unset or invalid.
func (c *Config) RateLimitWindow() time.Duration {
	d, err := time.ParseDuration(c.RateLimitWindowRaw)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// StoreTimeout parses STORE_TIMEOUT as a time.Duration. Returns 3s if unset or invalid.
func (c *Config) StoreTimeout() time.Duration {
	d, err := time.ParseDuration(c.StoreTimeoutRaw)
	if err != nil || d <= 0 {
		return 3 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList splits KAFKA_BROKERS on commas, trimming blanks. Empty when unset.
func (c *Config) TelemetryKafkaBrokersList() []string {
	raw := strings.TrimSpace(c.TelemetryKafkaBrokers)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
