package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// validEventTypes is the set of event types Validate and ShouldAuditEvent
// recognize. Anything else in a Config's EventTypes/ExcludeEventTypes is
// rejected at load time.
var validEventTypes = map[string]bool{
	EventTypeMCPInitialize:       true,
	EventTypeMCPToolCall:         true,
	EventTypeMCPToolsList:        true,
	EventTypeMCPResourceRead:     true,
	EventTypeMCPResourcesList:    true,
	EventTypeMCPPromptGet:        true,
	EventTypeMCPPromptsList:      true,
	EventTypeMCPNotification:     true,
	EventTypeMCPPing:             true,
	EventTypeMCPLogging:          true,
	EventTypeMCPCompletion:       true,
	EventTypeMCPRootsListChanged: true,
	EventTypeMCPRequest:          true,
}

// defaultMaxDataSize is the cap, in bytes, on captured request/response
// data when Config leaves MaxDataSize unset.
const defaultMaxDataSize = 1024

// Config governs what the Auditor logs and where.
type Config struct {
	Component           string   `json:"component,omitempty"`
	EventTypes          []string `json:"event_types,omitempty"`
	ExcludeEventTypes   []string `json:"exclude_event_types,omitempty"`
	IncludeRequestData  bool     `json:"include_request_data,omitempty"`
	IncludeResponseData bool     `json:"include_response_data,omitempty"`
	MaxDataSize         int      `json:"max_data_size,omitempty"`
	LogFile             string   `json:"log_file,omitempty"`
}

// DefaultConfig returns a Config with every optional event type audited
// and a 1KiB data-capture cap, logging to stdout.
func DefaultConfig() *Config {
	return &Config{MaxDataSize: defaultMaxDataSize}
}

// LoadFromReader decodes a Config from JSON.
func LoadFromReader(r io.Reader) (*Config, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode audit config: %w", err)
	}
	return &cfg, nil
}

// LoadFromFile decodes a Config from a JSON file on disk.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit config file: %w", err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// ShouldAuditEvent reports whether eventType passes this Config's
// inclusion/exclusion filters. An empty EventTypes list audits
// everything not explicitly excluded; ExcludeEventTypes always wins.
func (c *Config) ShouldAuditEvent(eventType string) bool {
	if c == nil {
		return true
	}
	for _, excluded := range c.ExcludeEventTypes {
		if excluded == eventType {
			return false
		}
	}
	if len(c.EventTypes) == 0 {
		return true
	}
	for _, included := range c.EventTypes {
		if included == eventType {
			return true
		}
	}
	return false
}

// Validate checks the Config's structural invariants and applies
// defaults for any unset numeric field.
func (c *Config) Validate() error {
	if c.MaxDataSize < 0 {
		return fmt.Errorf("max_data_size cannot be negative")
	}
	if c.MaxDataSize == 0 {
		c.MaxDataSize = defaultMaxDataSize
	}
	for _, t := range c.EventTypes {
		if !validEventTypes[t] {
			return fmt.Errorf("unknown event type: %s", t)
		}
	}
	for _, t := range c.ExcludeEventTypes {
		if !validEventTypes[t] {
			return fmt.Errorf("unknown exclude event type: %s", t)
		}
	}
	return nil
}

// GetLogWriter opens this Config's destination for audit log lines,
// defaulting to stdout when LogFile is unset. A nil receiver also
// defaults to stdout, so callers can pass an optional *Config through
// unchanged.
func (c *Config) GetLogWriter() (io.Writer, error) {
	if c == nil || c.LogFile == "" {
		return os.Stdout, nil
	}
	f, err := os.OpenFile(c.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}
	return f, nil
}
