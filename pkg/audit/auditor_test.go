package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferAuditor(t *testing.T, cfg *Config, transport string) (*Auditor, *bytes.Buffer) {
	t.Helper()
	a, err := NewAuditor(cfg, transport)
	require.NoError(t, err)
	buf := &bytes.Buffer{}
	a.writer = buf
	a.closer = nil
	return a, buf
}

func TestRecordCallWritesOneJSONLinePerCall(t *testing.T) {
	t.Parallel()
	a, buf := newBufferAuditor(t, &Config{}, "stdio")

	a.RecordCall(context.Background(), CallRecord{
		CorrelationID: "corr-1",
		Method:        "tools/call",
		ToolName:      "http_request",
		Outcome:       OutcomeSuccess,
		Duration:      10 * time.Millisecond,
	})

	var event AuditEvent
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))
	assert.Equal(t, EventTypeMCPToolCall, event.Type)
	assert.Equal(t, OutcomeSuccess, event.Outcome)
	assert.Equal(t, "corr-1", event.Metadata.AuditID)
	assert.Equal(t, "http_request", event.Target[TargetKeyName])
	assert.Equal(t, SourceTypeLocal, event.Source.Type)
}

func TestRecordCallRespectsEventTypeFilter(t *testing.T) {
	t.Parallel()
	a, buf := newBufferAuditor(t, &Config{EventTypes: []string{EventTypeMCPToolCall}}, "sse")

	a.RecordCall(context.Background(), CallRecord{Method: "tools/list", Outcome: OutcomeSuccess})
	assert.Empty(t, buf.Bytes())

	a.RecordCall(context.Background(), CallRecord{Method: "tools/call", ToolName: "ssh_exec", Outcome: OutcomeSuccess})
	assert.NotEmpty(t, buf.Bytes())
}

func TestRecordCallIncludesRequestDataWhenConfigured(t *testing.T) {
	t.Parallel()
	a, buf := newBufferAuditor(t, &Config{IncludeRequestData: true, MaxDataSize: 1024}, "http")

	a.RecordCall(context.Background(), CallRecord{
		Method:      "tools/call",
		ToolName:    "http_request",
		Outcome:     OutcomeSuccess,
		RequestData: json.RawMessage(`{"url":"https://example.com"}`),
	})

	var event AuditEvent
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &event))
	require.NotNil(t, event.Data)
	var data map[string]any
	require.NoError(t, json.Unmarshal(*event.Data, &data))
	req := data["request"].(map[string]any)
	assert.Equal(t, "https://example.com", req["url"])
}

func TestNewAuditorDefaultsComponent(t *testing.T) {
	t.Parallel()
	a, err := NewAuditor(nil, "stdio")
	require.NoError(t, err)
	assert.Equal(t, ComponentGateway, a.component)
}

func TestNewAuditorRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	_, err := NewAuditor(&Config{MaxDataSize: -1}, "stdio")
	assert.Error(t, err)
}
