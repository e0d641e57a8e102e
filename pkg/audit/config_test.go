package audit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Equal(t, defaultMaxDataSize, cfg.MaxDataSize)
	assert.Empty(t, cfg.Component)
}

func TestLoadFromReader(t *testing.T) {
	t.Parallel()
	jsonConfig := `{
		"component": "test-component",
		"event_types": ["mcp_tool_call"],
		"include_request_data": true,
		"max_data_size": 2048
	}`
	cfg, err := LoadFromReader(strings.NewReader(jsonConfig))
	require.NoError(t, err)
	assert.Equal(t, "test-component", cfg.Component)
	assert.Equal(t, []string{"mcp_tool_call"}, cfg.EventTypes)
	assert.True(t, cfg.IncludeRequestData)
	assert.Equal(t, 2048, cfg.MaxDataSize)
}

func TestLoadFromReaderInvalidJSON(t *testing.T) {
	t.Parallel()
	_, err := LoadFromReader(strings.NewReader(`{"invalid": }`))
	assert.Error(t, err)
}

func TestShouldAuditEventDefaultsToAllowAll(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	assert.True(t, cfg.ShouldAuditEvent("anything"))
}

func TestShouldAuditEventSpecificTypes(t *testing.T) {
	t.Parallel()
	cfg := &Config{EventTypes: []string{EventTypeMCPToolCall}}
	assert.True(t, cfg.ShouldAuditEvent(EventTypeMCPToolCall))
	assert.False(t, cfg.ShouldAuditEvent(EventTypeMCPPing))
}

func TestShouldAuditEventExcludeTakesPrecedence(t *testing.T) {
	t.Parallel()
	cfg := &Config{
		EventTypes:        []string{EventTypeMCPToolCall, EventTypeMCPPing},
		ExcludeEventTypes: []string{EventTypeMCPPing},
	}
	assert.True(t, cfg.ShouldAuditEvent(EventTypeMCPToolCall))
	assert.False(t, cfg.ShouldAuditEvent(EventTypeMCPPing))
}

func TestValidateRejectsNegativeMaxDataSize(t *testing.T) {
	t.Parallel()
	cfg := &Config{MaxDataSize: -1}
	assert.Error(t, cfg.Validate())
}

func TestValidateAppliesDefaultMaxDataSize(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, defaultMaxDataSize, cfg.MaxDataSize)
}

func TestValidateRejectsUnknownEventType(t *testing.T) {
	t.Parallel()
	cfg := &Config{EventTypes: []string{"bogus"}}
	assert.Error(t, cfg.Validate())
}

func TestGetLogWriterDefaultsToStdout(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	w, err := cfg.GetLogWriter()
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
}

func TestGetLogWriterNilConfigDefaultsToStdout(t *testing.T) {
	t.Parallel()
	var cfg *Config
	w, err := cfg.GetLogWriter()
	require.NoError(t, err)
	assert.Equal(t, os.Stdout, w)
}

func TestGetLogWriterOpensFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "audit.log")
	cfg := &Config{LogFile: path}
	w, err := cfg.GetLogWriter()
	require.NoError(t, err)
	defer w.(*os.File).Close()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestGetLogWriterInvalidPath(t *testing.T) {
	t.Parallel()
	cfg := &Config{LogFile: "/invalid/path/that/does/not/exist/audit.log"}
	_, err := cfg.GetLogWriter()
	assert.Error(t, err)
}
