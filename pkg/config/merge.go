package config

import (
	"os"
	"strconv"
	"strings"

	"dario.cat/mergo"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
)

// Merge deep-merges src into dst: maps and structs recurse, scalars
// and slices from src replace dst's. dst is mutated and returned.
func Merge(dst, src *Config) (*Config, error) {
	if err := mergo.Merge(dst, src, mergo.WithOverride); err != nil {
		return nil, gwerrors.NewConfigValidationError("merging config layers", err)
	}
	return dst, nil
}

// ApplyEnv re-applies the recognized environment-variable overrides on
// top of cfg. This step is mandatory and runs after every merge so
// that env values always win over file values independent of merge
// order (§4.1).
func ApplyEnv(cfg *Config) *Config {
	if v, ok := os.LookupEnv("MCP_ENVIRONMENT"); ok {
		cfg.Environment = v
	}
	if v, ok := os.LookupEnv("MCP_TRANSPORT"); ok {
		cfg.Transport.Mode = TransportMode(v)
	}
	if v, ok := os.LookupEnv("MCP_WATCH_CONFIG"); ok {
		cfg.Watch.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := os.LookupEnv("MCP_SSE_HOST"); ok {
		cfg.Transport.SSEHost = v
	}
	if v, ok := os.LookupEnv("MCP_SSE_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Transport.SSEPort = p
		}
	}
	if v, ok := os.LookupEnv("MCP_SSE_ENDPOINT"); ok {
		cfg.Transport.SSEEndpoint = v
	}
	if v, ok := os.LookupEnv("MCP_SSE_POST_ENDPOINT"); ok {
		cfg.Transport.SSEPostEndpoint = v
	}
	if v, ok := os.LookupEnv("MCP_HTTP_HOST"); ok {
		cfg.Transport.HTTPHost = v
	}
	if v, ok := os.LookupEnv("MCP_HTTP_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Transport.HTTPPort = p
		}
	}
	if v, ok := os.LookupEnv("MCP_HTTP_ENDPOINT"); ok {
		cfg.Transport.HTTPEndpoint = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	if v, ok := os.LookupEnv("MCP_AUDIT_ENABLED"); ok {
		cfg.Audit.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := os.LookupEnv("MCP_AUDIT_LOG_FILE"); ok {
		cfg.Audit.LogFile = v
	}
	if v, ok := os.LookupEnv("MCP_METRICS_ENABLED"); ok {
		cfg.Metrics.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := os.LookupEnv("MCP_METRICS_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Metrics.Port = p
		}
	}
	if v, ok := os.LookupEnv("MCP_SSH_ALGORITHMS_ENABLED"); ok {
		cfg.SSH.Algorithms.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := os.LookupEnv("MCP_SSH_ALGORITHMS_FALLBACK"); ok {
		cfg.SSH.Algorithms.Fallback = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := os.LookupEnv("MCP_SSH_KEX_ALGORITHMS"); ok {
		cfg.SSH.Algorithms.KexList = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("MCP_SSH_CIPHER_ALGORITHMS"); ok {
		cfg.SSH.Algorithms.CipherList = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("MCP_SSH_HMAC_ALGORITHMS"); ok {
		cfg.SSH.Algorithms.HMACList = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("MCP_SSH_HOSTKEY_ALGORITHMS"); ok {
		cfg.SSH.Algorithms.HostKeyList = strings.Split(v, ",")
	}
	if v, ok := os.LookupEnv("MCP_SECURITY_VALIDATORS_ENABLED"); ok {
		cfg.Security.ValidatorsEnabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v, ok := os.LookupEnv("MCP_SECURITY_VALIDATORS_STRATEGY"); ok {
		cfg.Security.ValidatorsStrategy = v
	}
	if v, ok := os.LookupEnv("MCP_SECURITY_VALIDATORS"); ok {
		cfg.Security.Validators = strings.Split(v, ",")
	}
	return cfg
}

// IsCI reports whether the process is running in a CI environment, in
// which case config-load failure must be treated as fatal rather than
// a silent fallback to defaults.
func IsCI() bool {
	v, ok := os.LookupEnv("CI")
	return ok && (v == "1" || strings.EqualFold(v, "true"))
}
