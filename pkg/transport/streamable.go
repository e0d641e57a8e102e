package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/stacklok/mcpgateway/pkg/logger"
	"github.com/stacklok/mcpgateway/pkg/transport/session"
	"github.com/stacklok/mcpgateway/pkg/transport/types"
)

const (
	streamableReadHeaderTimeout = 10 * time.Second
	sessionIDHeader             = "Mcp-Session-Id"
	methodInitialize            = "initialize"
)

// StreamableOptions configures a StreamableTransport.
type StreamableOptions struct {
	Host           string
	Port           int
	Endpoint       string
	SessionTTL     time.Duration
	AllowedOrigins []string
}

// StreamableTransport implements the stateful streamable-HTTP dialect
// (C10-c): a single endpoint handling POST/GET/DELETE/OPTIONS, session
// lifecycle via the Mcp-Session-Id header, and Accept-header negotiated
// unary-JSON-vs-SSE responses.
type StreamableTransport struct {
	addr     string
	endpoint string
	dispatch Dispatch

	allowedOrigins []string
	sessions       *session.Manager

	mu      sync.Mutex
	streams map[string]chan sseFrame

	server *http.Server
}

// NewStreamableTransport builds a StreamableTransport bound to
// opts.Host:opts.Port.
func NewStreamableTransport(opts StreamableOptions, dispatch Dispatch) *StreamableTransport {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = "/mcp"
	}
	return &StreamableTransport{
		addr:           fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		endpoint:       endpoint,
		dispatch:       dispatch,
		allowedOrigins: opts.AllowedOrigins,
		sessions: session.NewManager(opts.SessionTTL, func(id string) types.Session {
			return session.NewStreamableSession(id)
		}),
		streams: make(map[string]chan sseFrame),
	}
}

func (t *StreamableTransport) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Post(t.endpoint, t.handlePost)
	r.Get(t.endpoint, t.handleGet)
	r.Delete(t.endpoint, t.handleDelete)
	r.Options(t.endpoint, t.handleOptions)
	return r
}

// Serve starts the HTTP listener and blocks until ctx is canceled or the
// listener fails.
func (t *StreamableTransport) Serve(ctx context.Context) error {
	t.server = &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              t.addr,
		Handler:           t.router(),
		ReadHeaderTimeout: streamableReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- t.server.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return t.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown closes every session's stream, stops the session manager's
// cleanup loop, and closes the listener.
func (t *StreamableTransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	for id, ch := range t.streams {
		close(ch)
		delete(t.streams, id)
	}
	t.mu.Unlock()
	t.sessions.Stop()

	if t.server == nil {
		return nil
	}
	return t.server.Shutdown(ctx)
}

func (t *StreamableTransport) checkOrigin(w http.ResponseWriter, r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(t.allowedOrigins) == 0 {
		return true
	}
	for _, allowed := range t.allowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			return true
		}
	}
	logger.Warnf("streamable transport: rejecting request from disallowed origin %q", origin)
	http.Error(w, "origin not allowed", http.StatusForbidden)
	return false
}

func (t *StreamableTransport) handleOptions(w http.ResponseWriter, r *http.Request) {
	if !t.checkOrigin(w, r) {
		return
	}
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", sessionIDHeader+", Content-Type, Accept")
	w.WriteHeader(http.StatusNoContent)
}

// isInitializeRequest reports whether raw's first JSON-RPC envelope
// invokes the initialize method.
func isInitializeRequest(raw []byte) bool {
	v := gjson.ParseBytes(raw)
	if v.IsArray() {
		arr := v.Array()
		if len(arr) == 0 {
			return false
		}
		v = arr[0]
	}
	return v.Get("method").String() == methodInitialize
}

// hasPendingRequest reports whether raw contains at least one envelope
// carrying both a method and an id (i.e. a call expecting a response),
// as opposed to only notifications or response envelopes.
func hasPendingRequest(raw []byte) bool {
	v := gjson.ParseBytes(raw)
	if v.IsArray() {
		for _, item := range v.Array() {
			if isRequestEnvelope(item) {
				return true
			}
		}
		return false
	}
	return isRequestEnvelope(v)
}

func isRequestEnvelope(v gjson.Result) bool {
	return v.Get("method").Exists() && v.Get("id").Exists()
}

func (t *StreamableTransport) resolveSession(w http.ResponseWriter, r *http.Request, body []byte) (*session.StreamableSession, bool) {
	sessionID := r.Header.Get(sessionIDHeader)
	isInit := isInitializeRequest(body)

	switch {
	case isInit && sessionID == "":
		sess := session.NewStreamableSession(uuid.NewString())
		if err := t.sessions.ReplaceSession(sess); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return nil, false
		}
		sess.MarkInitialized()
		return sess, true

	case sessionID == "":
		http.Error(w, "missing Mcp-Session-Id header", http.StatusBadRequest)
		return nil, false

	default:
		existing, ok := t.sessions.Get(sessionID)
		if !ok {
			http.Error(w, "unknown or expired session", http.StatusNotFound)
			return nil, false
		}
		sess, ok := existing.(*session.StreamableSession)
		if !ok {
			http.Error(w, "session is not a streamable-HTTP session", http.StatusInternalServerError)
			return nil, false
		}
		if isInit {
			sess.MarkInitialized()
		}
		sess.Touch()
		return sess, true
	}
}

func (t *StreamableTransport) handlePost(w http.ResponseWriter, r *http.Request) {
	if !t.checkOrigin(w, r) {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	sess, ok := t.resolveSession(w, r, body)
	if !ok {
		return
	}

	if isInitializeRequest(body) {
		w.Header().Set(sessionIDHeader, sess.ID())
	}

	if !hasPendingRequest(body) {
		t.dispatch(r.Context(), body)
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		t.serveRequestAsStream(w, r, sess, body)
		return
	}

	resp := t.dispatch(r.Context(), body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if resp != nil {
		_, _ = w.Write(resp)
	}
}

// serveRequestAsStream opens a fresh SSE stream for this POST, processes
// the envelope synchronously, and emits the dispatcher's response as a
// single SSE event before closing the stream.
func (t *StreamableTransport) serveRequestAsStream(w http.ResponseWriter, r *http.Request, sess *session.StreamableSession, body []byte) {
	flusher, err := getFlusher(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	setSSEHeaders(w)
	w.Header().Set(sessionIDHeader, sess.ID())
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	resp := t.dispatch(r.Context(), body)
	if resp == nil {
		return
	}
	if err := writeSSEEvent(w, sess.NextEventID(), "message", string(resp)); err != nil {
		logger.Errorf("streamable transport: writing event: %v", err)
		return
	}
	flusher.Flush()
}

// handleGet opens a long-lived SSE stream bound to an existing session,
// for server-initiated messages between client POSTs.
func (t *StreamableTransport) handleGet(w http.ResponseWriter, r *http.Request) {
	if !t.checkOrigin(w, r) {
		return
	}

	sessionID := r.Header.Get(sessionIDHeader)
	if sessionID == "" {
		http.Error(w, "missing Mcp-Session-Id header", http.StatusBadRequest)
		return
	}
	existing, ok := t.sessions.Get(sessionID)
	if !ok {
		http.Error(w, "unknown or expired session", http.StatusNotFound)
		return
	}
	sess, ok := existing.(*session.StreamableSession)
	if !ok {
		http.Error(w, "session is not a streamable-HTTP session", http.StatusInternalServerError)
		return
	}

	flusher, err := getFlusher(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	t.mu.Lock()
	if _, exists := t.streams[sessionID]; exists {
		t.mu.Unlock()
		http.Error(w, "a stream is already open for this session", http.StatusConflict)
		return
	}
	ch := make(chan sseFrame, 16)
	t.streams[sessionID] = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		if t.streams[sessionID] == ch {
			delete(t.streams, sessionID)
		}
		t.mu.Unlock()
	}()

	setSSEHeaders(w)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-ch:
			if !ok {
				return
			}
			if err := writeSSEEvent(w, sess.NextEventID(), frame.eventType, frame.data); err != nil {
				logger.Errorf("streamable transport: writing event: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (t *StreamableTransport) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !t.checkOrigin(w, r) {
		return
	}

	sessionID := r.Header.Get(sessionIDHeader)
	if sessionID == "" {
		http.Error(w, "missing Mcp-Session-Id header", http.StatusBadRequest)
		return
	}

	t.mu.Lock()
	if ch, ok := t.streams[sessionID]; ok {
		close(ch)
		delete(t.streams, sessionID)
	}
	t.mu.Unlock()

	if err := t.sessions.Delete(sessionID); err != nil {
		http.Error(w, "unknown session", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}
