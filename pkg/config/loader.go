package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Halvra/cas/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, RADIUSMFA_CONFIG env, ./config.yaml, /etc/radiusmfa/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Per-server defaults
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "config file loaded", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	cfg.applyServerDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. RADIUSMFA_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/radiusmfa/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("RADIUSMFA_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"config.yaml",
		"/etc/radiusmfa/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps RADIUSMFA_* environment variables to config fields.
// Malformed structured values (JSON lists, booleans) are errors rather than
// being silently ignored, since they usually carry the server list.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("RADIUSMFA_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RADIUSMFA_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	// RADIUSMFA_RADIUS_SERVERS: JSON array of server configs. JSON is
	// decoded through YAML so durations like "3s" keep working.
	if v := os.Getenv("RADIUSMFA_RADIUS_SERVERS"); v != "" {
		servers, err := parseServersJSON(v)
		if err != nil {
			return err
		}
		cfg.RADIUS.Servers = servers
	}

	if v := os.Getenv("RADIUSMFA_FAILOVER_ON_REJECTION"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RADIUSMFA_FAILOVER_ON_REJECTION: %w", err)
		}
		cfg.RADIUS.FailoverOnRejection = b
	}
	if v := os.Getenv("RADIUSMFA_FAILOVER_ON_UNREACHABLE"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RADIUSMFA_FAILOVER_ON_UNREACHABLE: %w", err)
		}
		cfg.RADIUS.FailoverOnUnreachable = b
	}

	if v := os.Getenv("RADIUSMFA_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}

	// RADIUSMFA_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("RADIUSMFA_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			return err
		}
		cfg.Auth.APIKeys = keys
	}

	if v := os.Getenv("RADIUSMFA_AUDIT"); v != "" {
		cfg.Audit.Type = v
	}
	if v := os.Getenv("RADIUSMFA_AUDIT_DSN"); v != "" {
		cfg.Audit.Postgres.DSN = v
	}

	if v := os.Getenv("RADIUSMFA_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RADIUSMFA_DEBUG"); v != "" {
		cfg.Logging.Debug = v
	}
	return nil
}

func parseServersJSON(s string) ([]RADIUSServerConfig, error) {
	var servers []RADIUSServerConfig
	if err := yaml.Unmarshal([]byte(s), &servers); err != nil {
		return nil, fmt.Errorf("parsing RADIUSMFA_RADIUS_SERVERS: %w", err)
	}
	return servers, nil
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(s string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(s), &keys); err != nil {
		return nil, fmt.Errorf("parsing RADIUSMFA_API_KEYS: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// radius.servers[*].secret_file -> radius.servers[*].secret
	for i := range cfg.RADIUS.Servers {
		s := &cfg.RADIUS.Servers[i]
		if s.SecretFile != "" && s.Secret == "" {
			val, err := readSecretFile(s.SecretFile)
			if err != nil {
				return fmt.Errorf("radius.servers[%d].secret_file: %w", i, err)
			}
			s.Secret = val
		}
	}

	// audit.postgres.dsn_file -> audit.postgres.dsn
	if cfg.Audit.Postgres.DSNFile != "" && cfg.Audit.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Audit.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("audit.postgres.dsn_file: %w", err)
		}
		cfg.Audit.Postgres.DSN = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
