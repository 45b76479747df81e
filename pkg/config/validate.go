package config

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/Halvra/cas/pkg/debug"
)

// Validate checks the configuration for required fields and valid values.
// All problems are reported together, each with a descriptive field path.
// An empty server list is valid: every verification then fails and the
// gateway reports not-ready.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	names := make(map[string]int, len(c.RADIUS.Servers))
	for i, s := range c.RADIUS.Servers {
		path := fmt.Sprintf("radius.servers[%d]", i)

		if s.Address == "" {
			errs = append(errs, fmt.Errorf("%s.address is required", path))
		} else if _, _, err := net.SplitHostPort(s.Address); err != nil {
			errs = append(errs, fmt.Errorf("%s.address must be host:port, got %q", path, s.Address))
		}
		if s.Secret == "" {
			errs = append(errs, fmt.Errorf("%s.secret or %s.secret_file is required", path, path))
		}
		if s.Timeout < 0 {
			errs = append(errs, fmt.Errorf("%s.timeout must be > 0, got %s", path, s.Timeout))
		}
		if s.Retries < 0 {
			errs = append(errs, fmt.Errorf("%s.retries must be >= 0, got %d", path, s.Retries))
		}
		if s.NASIPAddress != "" && net.ParseIP(s.NASIPAddress) == nil {
			errs = append(errs, fmt.Errorf("%s.nas_ip_address is not an IP address: %q", path, s.NASIPAddress))
		}
		if s.Name != "" {
			if prev, dup := names[s.Name]; dup {
				errs = append(errs, fmt.Errorf("%s.name %q duplicates radius.servers[%d]", path, s.Name, prev))
			}
			names[s.Name] = i
		}
	}

	switch c.Auth.Type {
	case "none", "apikey", "jwt":
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}
	if c.Auth.Type == "apikey" {
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, errors.New("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].key or key_file is required", i))
			}
			if k.Subject == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].subject is required", i))
			}
		}
	}
	if c.Auth.Type == "jwt" && c.Auth.JWT.JWKSURL == "" {
		errs = append(errs, errors.New("auth.jwt.jwks_url is required when auth.type is \"jwt\""))
	}
	switch c.Auth.Username.Case {
	case "", "lower", "upper":
	default:
		errs = append(errs, fmt.Errorf("auth.username.case must be \"lower\" or \"upper\", got %q", c.Auth.Username.Case))
	}
	if c.Auth.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, fmt.Errorf("auth.rate_limit.requests_per_minute must be >= 0, got %d", c.Auth.RateLimit.RequestsPerMinute))
	}

	switch c.Audit.Type {
	case "none", "memory", "postgres":
	default:
		errs = append(errs, fmt.Errorf("audit.type must be \"none\", \"memory\", or \"postgres\", got %q", c.Audit.Type))
	}
	if c.Audit.Type == "postgres" && c.Audit.Postgres.DSN == "" && c.Audit.Postgres.DSNFile == "" {
		errs = append(errs, errors.New("audit.postgres.dsn or audit.postgres.dsn_file is required when audit.type is \"postgres\""))
	}
	if c.Audit.Type == "memory" && c.Audit.MaxSize < 0 {
		errs = append(errs, fmt.Errorf("audit.max_size must be >= 0, got %d", c.Audit.MaxSize))
	}

	if c.Observability.Metrics.Enabled && !strings.HasPrefix(c.Observability.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("observability.metrics.path must start with \"/\", got %q", c.Observability.Metrics.Path))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	if len(errs) == 0 {
		debug.Log("config", "configuration valid", "radius_servers", len(c.RADIUS.Servers), "auth", c.Auth.Type, "audit", c.Audit.Type)
	}
	return errors.Join(errs...)
}
