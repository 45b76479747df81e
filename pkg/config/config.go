// Package config provides unified configuration for the radiusmfa gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (RADIUSMFA_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import (
	"net"
	"time"

	"github.com/Halvra/cas/pkg/radius"
)

// Config holds all configuration for the radiusmfa gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	RADIUS        RADIUSConfig        `yaml:"radius"`
	Auth          AuthConfig          `yaml:"auth"`
	Audit         AuditConfig         `yaml:"audit"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 15s
}

// RADIUSConfig holds the server list and the failover policy.
type RADIUSConfig struct {
	// FailoverOnRejection tries the next server after an Access-Reject.
	FailoverOnRejection bool `yaml:"failover_on_rejection"`

	// FailoverOnUnreachable tries the next server after a timeout or a
	// protocol error.
	FailoverOnUnreachable bool `yaml:"failover_on_unreachable"`

	// Servers are tried in order.
	Servers []RADIUSServerConfig `yaml:"servers"`
}

// RADIUSServerConfig describes one RADIUS server.
type RADIUSServerConfig struct {
	Name          string        `yaml:"name"`
	Address       string        `yaml:"address"` // host:port
	Secret        string        `yaml:"secret"`
	SecretFile    string        `yaml:"secret_file"` // _file variant for secret
	Timeout       time.Duration `yaml:"timeout"`     // default: 5s
	Retries       int           `yaml:"retries"`     // resends after a timeout, default: 0
	NASIdentifier string        `yaml:"nas_identifier"`
	NASIPAddress  string        `yaml:"nas_ip_address"`
	NASPort       uint32        `yaml:"nas_port"`
}

// Endpoint converts the entry into a radius.Endpoint.
func (s RADIUSServerConfig) Endpoint() radius.Endpoint {
	return radius.Endpoint{
		Name:          s.Name,
		Address:       s.Address,
		Secret:        s.Secret,
		Timeout:       s.Timeout,
		Retries:       s.Retries,
		NASIdentifier: s.NASIdentifier,
		NASIPAddress:  net.ParseIP(s.NASIPAddress),
		NASPort:       s.NASPort,
	}
}

// Endpoints converts every configured server, preserving order.
func (c RADIUSConfig) Endpoints() []radius.Endpoint {
	eps := make([]radius.Endpoint, 0, len(c.Servers))
	for _, s := range c.Servers {
		eps = append(eps, s.Endpoint())
	}
	return eps
}

// AuthConfig holds first-factor authentication settings.
type AuthConfig struct {
	Type       string          `yaml:"type"`        // "none", "apikey", or "jwt", default: "none"
	UserHeader string          `yaml:"user_header"` // subject header for type=none, default: "X-Remote-User"
	APIKeys    []APIKeyConfig  `yaml:"api_keys"`    // API key entries for type=apikey
	JWT        JWTConfig       `yaml:"jwt"`
	RateLimit  RateLimitConfig `yaml:"rate_limit"`

	// Username maps the authenticated subject to the RADIUS User-Name.
	Username UsernameConfig `yaml:"username"`

	// DefaultTier applies to identities without a service tier, default: "default".
	DefaultTier string `yaml:"default_tier"`
}

// UsernameConfig derives the RADIUS User-Name from the subject.
type UsernameConfig struct {
	StripRealm bool   `yaml:"strip_realm"` // drop everything from the last '@'
	Case       string `yaml:"case"`        // "", "lower", or "upper"
	Prefix     string `yaml:"prefix"`
	Suffix     string `yaml:"suffix"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key         string `yaml:"key" json:"key"`
	KeyFile     string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject     string `yaml:"subject" json:"subject"`
	TenantID    string `yaml:"tenant_id" json:"tenant_id"`
	ServiceTier string `yaml:"service_tier" json:"service_tier"`
}

// JWTConfig holds JWT/OIDC validation settings for type=jwt.
type JWTConfig struct {
	Issuer      string `yaml:"issuer"`
	Audience    string `yaml:"audience"`
	JWKSURL     string `yaml:"jwks_url"`
	UserClaim   string `yaml:"user_claim"`   // default: "sub"
	TenantClaim string `yaml:"tenant_claim"` // default: "tenant_id"
	ScopesClaim string `yaml:"scopes_claim"` // default: "scope"
	TierClaim   string `yaml:"tier_claim"`   // default: "tier"
}

// RateLimitConfig caps verification attempts per subject and minute.
// Zero disables limiting.
type RateLimitConfig struct {
	RequestsPerMinute int                   `yaml:"requests_per_minute"`
	Tiers             map[string]TierConfig `yaml:"tiers"`
}

// TierConfig overrides the limit for one service tier.
type TierConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// AuditConfig holds audit trail settings.
type AuditConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory", or "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings. RADIUSMFA_LOG_LEVEL and
// RADIUSMFA_DEBUG take precedence when set.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // TRACE, DEBUG, INFO, WARN, ERROR; default: INFO
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Auth: AuthConfig{
			Type:       "none",
			UserHeader: "X-Remote-User",
		},
		Audit: AuditConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}

// applyServerDefaults fills per-server defaults that YAML cannot express
// for list entries.
func (c *Config) applyServerDefaults() {
	for i := range c.RADIUS.Servers {
		s := &c.RADIUS.Servers[i]
		if s.Timeout == 0 {
			s.Timeout = radius.DefaultTimeout
		}
		if s.Name == "" {
			s.Name = s.Address
		}
	}
}
