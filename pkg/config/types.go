// Package config implements the layered configuration pipeline (C1):
// CLI > environment > file > built-in defaults precedence, structural
// validation, deep-merge, and filesystem hot-reload with safe
// fallback.
package config

import "strings"

// HTTPConfig governs outbound HTTP executor behavior.
type HTTPConfig struct {
	TimeoutSeconds int  `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	MaxRedirects   int  `json:"maxRedirects" yaml:"maxRedirects"`
	RetryMax       int  `json:"retryMax" yaml:"retryMax"`
	RetryBaseMs    int  `json:"retryBaseMs" yaml:"retryBaseMs"`
	RetryCapMs     int  `json:"retryCapMs" yaml:"retryCapMs"`
}

// SSHAlgorithms lists the operator-configured kex/cipher/hmac/hostkey
// algorithm preferences for negotiation.
type SSHAlgorithms struct {
	Enabled     bool     `json:"enabled" yaml:"enabled"`
	Fallback    bool     `json:"fallback" yaml:"fallback"`
	KexList     []string `json:"kex,omitempty" yaml:"kex,omitempty"`
	CipherList  []string `json:"cipher,omitempty" yaml:"cipher,omitempty"`
	HMACList    []string `json:"hmac,omitempty" yaml:"hmac,omitempty"`
	HostKeyList []string `json:"hostkey,omitempty" yaml:"hostkey,omitempty"`
}

// SSHConfig governs the SSH executor's connection pool and negotiation
// behavior.
type SSHConfig struct {
	TimeoutSeconds  int           `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	PoolSize        int           `json:"poolSize" yaml:"poolSize"`
	IdleLingerSeconds int         `json:"idleLingerSeconds" yaml:"idleLingerSeconds"`
	Algorithms      SSHAlgorithms `json:"algorithms" yaml:"algorithms"`
}

// RateLimit configures the token-bucket rate limiter shared by the
// security validator and the HTTP executor.
type RateLimit struct {
	Enabled           bool    `json:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `json:"requestsPerSecond" yaml:"requestsPerSecond"`
	Burst             int     `json:"burst" yaml:"burst"`
}

// SecurityConfig governs the shared security validator and the
// executors' request/response limits.
type SecurityConfig struct {
	SkipTLSVerification   bool      `json:"skipTlsVerification" yaml:"skipTlsVerification"`
	AllowedContentTypes   []string  `json:"allowedContentTypes" yaml:"allowedContentTypes"`
	MaxRequestBytes       int64     `json:"maxRequestBytes" yaml:"maxRequestBytes"`
	MaxResponseBytes      int64     `json:"maxResponseBytes" yaml:"maxResponseBytes"`
	AllowLocalConnections bool      `json:"allowLocalConnections" yaml:"allowLocalConnections"`
	RateLimit             RateLimit `json:"rateLimit" yaml:"rateLimit"`
	ValidatorsEnabled     bool      `json:"validatorsEnabled" yaml:"validatorsEnabled"`
	ValidatorsStrategy    string    `json:"validatorsStrategy" yaml:"validatorsStrategy"`
	Validators            []string  `json:"validators,omitempty" yaml:"validators,omitempty"`
}

// TransportMode selects which wire format the gateway serves.
type TransportMode string

// Supported transport modes.
const (
	TransportStdio TransportMode = "stdio"
	TransportSSE   TransportMode = "sse"
	TransportHTTP  TransportMode = "http"
)

// TransportConfig selects and configures the active transport.
type TransportConfig struct {
	Mode TransportMode `json:"mode" yaml:"mode"`

	SSEHost         string `json:"sseHost" yaml:"sseHost"`
	SSEPort         int    `json:"ssePort" yaml:"ssePort"`
	SSEEndpoint     string `json:"sseEndpoint" yaml:"sseEndpoint"`
	SSEPostEndpoint string `json:"ssePostEndpoint" yaml:"ssePostEndpoint"`

	HTTPHost     string `json:"httpHost" yaml:"httpHost"`
	HTTPPort     int    `json:"httpPort" yaml:"httpPort"`
	HTTPEndpoint string `json:"httpEndpoint" yaml:"httpEndpoint"`

	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// LoggingConfig governs the ambient logger.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// AuditConfig governs the structured audit log the dispatcher emits
// for every JSON-RPC call, mirroring pkg/audit.Config's own fields so
// that package stays free of a dependency on this one.
type AuditConfig struct {
	Enabled             bool     `json:"enabled" yaml:"enabled"`
	Component           string   `json:"component,omitempty" yaml:"component,omitempty"`
	EventTypes          []string `json:"eventTypes,omitempty" yaml:"eventTypes,omitempty"`
	ExcludeEventTypes   []string `json:"excludeEventTypes,omitempty" yaml:"excludeEventTypes,omitempty"`
	IncludeRequestData  bool     `json:"includeRequestData" yaml:"includeRequestData"`
	IncludeResponseData bool     `json:"includeResponseData" yaml:"includeResponseData"`
	MaxDataSize         int      `json:"maxDataSize" yaml:"maxDataSize"`
	LogFile             string   `json:"logFile,omitempty" yaml:"logFile,omitempty"`
}

// MetricsConfig governs the operator-facing Prometheus listener, kept
// separate from the MCP transport's own address so scraping never
// shares a port with protocol traffic.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Host    string `json:"host" yaml:"host"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path" yaml:"path"`
}

// LoaderDeclaration configures one entry of resources.loaders.
type LoaderDeclaration struct {
	ID   string `json:"id" yaml:"id"`
	Type string `json:"type" yaml:"type"` // local | remote

	// local
	Files []string `json:"files,omitempty" yaml:"files,omitempty"`
	Dir   string   `json:"dir,omitempty" yaml:"dir,omitempty"`

	// remote
	BaseURL      string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	AuthType     string            `json:"authType,omitempty" yaml:"authType,omitempty"`
	AuthRef      string            `json:"authRef,omitempty" yaml:"authRef,omitempty"`
	APIKeyHeader string            `json:"apiKeyHeader,omitempty" yaml:"apiKeyHeader,omitempty"`
	Headers      map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	CacheTTLSecs int               `json:"cacheTtlSeconds,omitempty" yaml:"cacheTtlSeconds,omitempty"`

	// shared filter
	Filter LoaderFilter `json:"filter,omitempty" yaml:"filter,omitempty"`
}

// LoaderFilter narrows which resources a loader admits.
type LoaderFilter struct {
	Types    []string `json:"types,omitempty" yaml:"types,omitempty"`
	Groups   []string `json:"groups,omitempty" yaml:"groups,omitempty"`
	Enabled  *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	NameRegex string  `json:"nameRegex,omitempty" yaml:"nameRegex,omitempty"`
}

// ResourcesConfig declares the ordered set of configured loaders.
type ResourcesConfig struct {
	Loaders []LoaderDeclaration `json:"loaders,omitempty" yaml:"loaders,omitempty"`
}

// Config is the top-level, seven-subtree configuration. Every field
// is present whether or not the source document set it, since
// DefaultConfig supplies defaults for every leaf.
type Config struct {
	// Environment is the operator-declared deployment environment
	// ("development", "staging", "production", ...). IsProduction
	// reports whether it names production; C3/C8 consult that to force
	// HTTPS and real TLS verification regardless of other toggles.
	Environment string `json:"environment" yaml:"environment"`

	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	SSH       SSHConfig       `json:"ssh" yaml:"ssh"`
	Security  SecurityConfig  `json:"security" yaml:"security"`
	Transport TransportConfig `json:"transport" yaml:"transport"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
	Audit     AuditConfig     `json:"audit" yaml:"audit"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Resources ResourcesConfig `json:"resources" yaml:"resources"`

	// watch controls hot-reload; not part of the wire format's seven
	// subtrees but carried alongside it for the watcher's own use.
	Watch WatchConfig `json:"watch,omitempty" yaml:"watch,omitempty"`
}

// IsProduction reports whether Environment names a production
// deployment. This is the single signal C3 (remote loader) and C8
// (HTTP executor) consult to require HTTPS and enforce real TLS
// verification regardless of any operator toggle.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// WatchConfig configures the hot-reload watcher.
type WatchConfig struct {
	Enabled      bool `json:"enabled" yaml:"enabled"`
	DebounceMs   int  `json:"debounceMs" yaml:"debounceMs"`
}

// Source discriminates where a successfully loaded config came from.
type Source string

// Config sources, in precedence order.
const (
	SourceCLI     Source = "cli"
	SourceEnv     Source = "env"
	SourceDefault Source = "default"
	SourceNone    Source = "none"
)

// Meta is returned alongside every successful load.
type Meta struct {
	Source     Source `json:"source"`
	Path       string `json:"path"`
	DurationMs int64  `json:"durationMs"`
}

// DefaultConfig returns the built-in configuration tree with every
// leaf populated.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		HTTP: HTTPConfig{
			TimeoutSeconds: 30,
			MaxRedirects:   10,
			RetryMax:       3,
			RetryBaseMs:    200,
			RetryCapMs:     5000,
		},
		SSH: SSHConfig{
			TimeoutSeconds:    30,
			PoolSize:          10,
			IdleLingerSeconds: 300,
			Algorithms:        SSHAlgorithms{Enabled: false, Fallback: true},
		},
		Security: SecurityConfig{
			SkipTLSVerification:   false,
			AllowedContentTypes:   []string{"application/json", "text/plain", "application/xml", "text/xml"},
			MaxRequestBytes:       1 << 20,  // 1MiB
			MaxResponseBytes:      10 << 20, // 10MiB
			AllowLocalConnections: false,
			RateLimit:             RateLimit{Enabled: false, RequestsPerSecond: 10, Burst: 20},
			ValidatorsEnabled:     false,
			ValidatorsStrategy:    "append",
		},
		Transport: TransportConfig{
			Mode:            TransportStdio,
			SSEHost:         "127.0.0.1",
			SSEPort:         3001,
			SSEEndpoint:     "/sse",
			SSEPostEndpoint: "/message",
			HTTPHost:        "127.0.0.1",
			HTTPPort:        3002,
			HTTPEndpoint:    "/mcp",
		},
		Logging: LoggingConfig{Level: "info"},
		Audit: AuditConfig{
			Enabled:     false,
			MaxDataSize: 1024,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Host:    "127.0.0.1",
			Port:    9090,
			Path:    "/metrics",
		},
		Resources: ResourcesConfig{
			Loaders: nil,
		},
		Watch: WatchConfig{Enabled: false, DebounceMs: 250},
	}
}
