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

	"github.com/stacklok/mcpgateway/pkg/logger"
)

const sseReadHeaderTimeout = 10 * time.Second

// sseEndpoint is the GET path that upgrades to text/event-stream.
const sseEndpoint = "/sse"

// sseMessageEndpoint is the POST path that accepts one JSON-RPC
// envelope and routes it synchronously; its response is pushed to the
// active SSE stream rather than returned in the HTTP response body.
const sseMessageEndpoint = "/message"

// setSSEHeaders marks w as an SSE stream.
func setSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
}

func getFlusher(w http.ResponseWriter) (http.Flusher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, errors.New("response writer does not support flushing")
	}
	return flusher, nil
}

// writeSSEEvent writes one SSE frame: an optional monotonic id line,
// an event-type line, and one or more data lines (multiline payloads
// are split across repeated "data:" lines), terminated by a blank
// line.
func writeSSEEvent(w io.Writer, id uint64, eventType, data string) error {
	var b strings.Builder
	if id > 0 {
		fmt.Fprintf(&b, "id: %d\n", id)
	}
	fmt.Fprintf(&b, "event: %s\n", eventType)
	for _, line := range strings.Split(data, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// SSETransport implements the simpler two-endpoint SSE dialect (C10-b):
// at most one active stream per server instance.
type SSETransport struct {
	addr     string
	endpoint string
	postPath string
	dispatch Dispatch

	mu       sync.Mutex
	stream   chan sseFrame
	streamID uint64

	server *http.Server
}

type sseFrame struct {
	eventType string
	data      string
}

// SSEOptions configures an SSETransport.
type SSEOptions struct {
	Host         string
	Port         int
	Endpoint     string
	PostEndpoint string
}

// NewSSETransport builds an SSETransport bound to opts.Host:opts.Port.
func NewSSETransport(opts SSEOptions, dispatch Dispatch) *SSETransport {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = sseEndpoint
	}
	postPath := opts.PostEndpoint
	if postPath == "" {
		postPath = sseMessageEndpoint
	}
	return &SSETransport{
		addr:     fmt.Sprintf("%s:%d", opts.Host, opts.Port),
		endpoint: endpoint,
		postPath: postPath,
		dispatch: dispatch,
	}
}

func (t *SSETransport) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get(t.endpoint, t.handleStream)
	r.Post(t.postPath, t.handleMessage)
	return r
}

// Serve starts the HTTP listener and blocks until ctx is canceled or the
// listener fails.
func (t *SSETransport) Serve(ctx context.Context) error {
	t.server = &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              t.addr,
		Handler:           t.router(),
		ReadHeaderTimeout: sseReadHeaderTimeout,
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

// Shutdown closes the single active stream, if any, and the listener.
func (t *SSETransport) Shutdown(ctx context.Context) error {
	t.mu.Lock()
	if t.stream != nil {
		close(t.stream)
		t.stream = nil
	}
	t.mu.Unlock()
	if t.server == nil {
		return nil
	}
	return t.server.Shutdown(ctx)
}

func (t *SSETransport) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, err := getFlusher(w)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	t.mu.Lock()
	if t.stream != nil {
		t.mu.Unlock()
		http.Error(w, "an SSE stream is already active", http.StatusConflict)
		return
	}
	ch := make(chan sseFrame, 16)
	t.stream = ch
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		if t.stream == ch {
			t.stream = nil
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
			t.mu.Lock()
			t.streamID++
			id := t.streamID
			t.mu.Unlock()
			if err := writeSSEEvent(w, id, frame.eventType, frame.data); err != nil {
				logger.Errorf("sse transport: writing event: %v", err)
				return
			}
			flusher.Flush()
		}
	}
}

func (t *SSETransport) handleMessage(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 10<<20))
	if err != nil {
		http.Error(w, "reading request body", http.StatusBadRequest)
		return
	}

	resp := t.dispatch(r.Context(), body)

	t.mu.Lock()
	ch := t.stream
	t.mu.Unlock()
	if ch == nil {
		http.Error(w, "no active SSE stream to receive the response", http.StatusPreconditionFailed)
		return
	}
	if resp != nil {
		select {
		case ch <- sseFrame{eventType: "message", data: string(resp)}:
		default:
			logger.Warn("sse transport: stream buffer full, dropping response")
		}
	}
	w.WriteHeader(http.StatusAccepted)
}
