package transport

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStreamableTransport(dispatch Dispatch) *StreamableTransport {
	return NewStreamableTransport(StreamableOptions{Host: "127.0.0.1", Port: 0, SessionTTL: time.Hour}, dispatch)
}

func TestStreamablePostInitializeCreatesSession(t *testing.T) {
	tr := newTestStreamableTransport(echoDispatch)
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(sessionIDHeader))
}

func TestStreamablePostWithoutSessionFails(t *testing.T) {
	tr := newTestStreamableTransport(echoDispatch)
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStreamablePostUnknownSessionFails(t *testing.T) {
	tr := newTestStreamableTransport(echoDispatch)
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(sessionIDHeader, "does-not-exist")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamablePostOnlyNotificationsReturns202(t *testing.T) {
	tr := newTestStreamableTransport(echoDispatch)
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	initReq, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	initReq.Header.Set("Accept", "application/json")
	initResp, err := http.DefaultClient.Do(initReq)
	require.NoError(t, err)
	defer initResp.Body.Close()
	sessionID := initResp.Header.Get(sessionIDHeader)
	require.NotEmpty(t, sessionID)

	notifReq, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	notifReq.Header.Set("Accept", "application/json")
	notifReq.Header.Set(sessionIDHeader, sessionID)
	notifResp, err := http.DefaultClient.Do(notifReq)
	require.NoError(t, err)
	defer notifResp.Body.Close()
	assert.Equal(t, http.StatusAccepted, notifResp.StatusCode)
}

func TestStreamablePostEventStreamEmitsResponse(t *testing.T) {
	tr := newTestStreamableTransport(echoDispatch)
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	initReq, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	initReq.Header.Set("Accept", "application/json")
	initResp, err := http.DefaultClient.Do(initReq)
	require.NoError(t, err)
	defer initResp.Body.Close()
	sessionID := initResp.Header.Get(sessionIDHeader)
	require.NotEmpty(t, sessionID)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set(sessionIDHeader, sessionID)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	scanner := bufio.NewScanner(resp.Body)
	var lines []string
	for scanner.Scan() {
		line := scanner.Text()
		lines = append(lines, line)
		if line == "" && len(lines) > 1 {
			break
		}
	}
	joined := strings.Join(lines, "\n")
	assert.Contains(t, joined, "id: 1")
	assert.Contains(t, joined, "event: message")
	assert.Contains(t, joined, `"echoed"`)
}

func TestStreamableDeleteTerminatesSession(t *testing.T) {
	tr := newTestStreamableTransport(echoDispatch)
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	initReq, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	initReq.Header.Set("Accept", "application/json")
	initResp, err := http.DefaultClient.Do(initReq)
	require.NoError(t, err)
	defer initResp.Body.Close()
	sessionID := initResp.Header.Get(sessionIDHeader)
	require.NotEmpty(t, sessionID)

	delReq, err := http.NewRequest(http.MethodDelete, srv.URL+"/mcp", nil)
	require.NoError(t, err)
	delReq.Header.Set(sessionIDHeader, sessionID)
	delResp, err := http.DefaultClient.Do(delReq)
	require.NoError(t, err)
	defer delResp.Body.Close()
	assert.Equal(t, http.StatusOK, delResp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	req.Header.Set(sessionIDHeader, sessionID)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStreamableOptionsIsCORSPreflight(t *testing.T) {
	tr := newTestStreamableTransport(echoDispatch)
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/mcp", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestStreamableRejectsDisallowedOrigin(t *testing.T) {
	tr := NewStreamableTransport(StreamableOptions{
		Host:           "127.0.0.1",
		Port:           0,
		SessionTTL:     time.Hour,
		AllowedOrigins: []string{"https://trusted.example"},
	}, echoDispatch)
	srv := httptest.NewServer(tr.router())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/mcp", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"initialize"}`))
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", "https://evil.example")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
