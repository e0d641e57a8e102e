package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/mcpgateway/pkg/adapter"
	"github.com/stacklok/mcpgateway/pkg/audit"
	"github.com/stacklok/mcpgateway/pkg/httpexec"
	"github.com/stacklok/mcpgateway/pkg/metrics"
	"github.com/stacklok/mcpgateway/pkg/registry"
	"github.com/stacklok/mcpgateway/pkg/secrets"
	"github.com/stacklok/mcpgateway/pkg/sshexec"
)

func newTestDispatcher() *Dispatcher {
	reg := registry.NewHandle(registry.New())
	httpExec := httpexec.New(httpexec.Options{AllowLocalConnections: true})
	sshExec := sshexec.New(sshexec.Options{AllowLocalConnections: true})
	a := adapter.New(reg, secrets.NewResolver(), httpExec, sshExec)
	return New(reg, a, httpExec, sshExec, ServerInfo{Name: "mcp-gateway", Version: "test"})
}

func TestDispatchInitialize(t *testing.T) {
	d := newTestDispatcher()
	out := d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	assert.Equal(t, ProtocolVersion, result["protocolVersion"])
}

func TestDispatchUnknownMethod(t *testing.T) {
	d := newTestDispatcher()
	out := d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","id":2,"method":"bogus"}`))

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeMethodNotFound, resp.Error.Code)
}

func TestDispatchNotificationProducesNoResponse(t *testing.T) {
	d := newTestDispatcher()
	out := d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","method":"initialize"}`))
	assert.Nil(t, out)
}

func TestDispatchMalformedEnvelope(t *testing.T) {
	d := newTestDispatcher()
	out := d.Dispatch(context.Background(), []byte(`not json`))

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeParseError, resp.Error.Code)
}

func TestDispatchToolsList(t *testing.T) {
	d := newTestDispatcher()
	out := d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","id":3,"method":"tools/list"}`))

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error)
	result := resp.Result.(map[string]any)
	list := result["tools"].([]any)
	assert.Len(t, list, 5)
}

func TestDispatchToolsCallValidationFailure(t *testing.T) {
	d := newTestDispatcher()
	out := d.Dispatch(context.Background(), []byte(
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"http_request","arguments":{}}}`))

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, CodeInternalError, resp.Error.Code)
}

func TestDispatchRecordsToolCallMetrics(t *testing.T) {
	d := newTestDispatcher()
	rec := metrics.NewRecorder()
	d.SetMetrics(rec)

	d.Dispatch(context.Background(), []byte(
		`{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"http_request","arguments":{}}}`))

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, req)
	assert.Contains(t, w.Body.String(), `mcp_gateway_tool_calls_total{outcome="error",tool="http_request"} 1`)
}

func TestDispatchReportsCallsToAuditor(t *testing.T) {
	d := newTestDispatcher()
	logPath := filepath.Join(t.TempDir(), "audit.log")
	auditor, err := audit.NewAuditor(&audit.Config{LogFile: logPath}, "stdio")
	require.NoError(t, err)
	d.SetAuditor(auditor)

	d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","id":9,"method":"tools/list"}`))
	require.NoError(t, auditor.Close())

	contents, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"type":"mcp_tools_list"`)
}

func TestDispatchToolsCallHTTPRequestSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := newTestDispatcher()
	payload := `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"http_request","arguments":{"url":"` + srv.URL + `"}}}`
	out := d.Dispatch(context.Background(), []byte(payload))

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error)
}

func TestDispatchSSHExecAcceptsCommandsAlias(t *testing.T) {
	d := newTestDispatcher()
	payload := `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"ssh_exec","arguments":` +
		`{"host":"127.0.0.1","port":1,"username":"root","password":"x","commands":"ls"}}}`
	out := d.Dispatch(context.Background(), []byte(payload))

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	// schema validation passes (command present via alias); execution itself
	// fails to dial (no real ssh server), surfaced as an internal error, not
	// a validation error.
	require.NotNil(t, resp.Error)
	assert.NotEqual(t, CodeInvalidParams, resp.Error.Code)
}

func TestDispatchListResourcesEmpty(t *testing.T) {
	d := newTestDispatcher()
	out := d.Dispatch(context.Background(), []byte(`{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"list_resources"}}`))

	var resp Response
	require.NoError(t, json.Unmarshal(out, &resp))
	require.Nil(t, resp.Error)
}

func TestDispatchBatch(t *testing.T) {
	d := newTestDispatcher()
	out := d.Dispatch(context.Background(), []byte(
		`[{"jsonrpc":"2.0","id":1,"method":"initialize"},{"jsonrpc":"2.0","id":2,"method":"tools/list"}]`))

	var responses []Response
	require.NoError(t, json.Unmarshal(out, &responses))
	assert.Len(t, responses, 2)
}
