package transport

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/stacklok/mcpgateway/pkg/logger"
)

// StdioTransport serves line-framed JSON-RPC over standard in/out.
// Stdout carries only protocol traffic; the caller is responsible for
// having forced the logger to stderr before constructing one (§4.8).
// The transport is single-threaded cooperative: one line is fully
// dispatched before the next is read.
type StdioTransport struct {
	in       io.Reader
	out      io.Writer
	dispatch Dispatch

	mu     sync.Mutex
	closed bool
}

// NewStdioTransport builds a StdioTransport over in/out using dispatch
// to process each line.
func NewStdioTransport(in io.Reader, out io.Writer, dispatch Dispatch) *StdioTransport {
	return &StdioTransport{in: in, out: out, dispatch: dispatch}
}

// Serve reads newline-delimited JSON values from in, dispatches each
// one in turn, and writes each response as a single line to out. It
// returns when in reaches EOF, ctx is canceled, or Shutdown is called.
func (t *StdioTransport) Serve(ctx context.Context) error {
	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		t.mu.Lock()
		closed := t.closed
		t.mu.Unlock()
		if closed {
			return nil
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		resp := t.dispatch(ctx, []byte(line))
		if resp == nil {
			continue
		}
		if _, err := t.out.Write(append(resp, '\n')); err != nil {
			logger.Errorf("stdio transport: writing response: %v", err)
			return err
		}
	}
	return scanner.Err()
}

// Shutdown marks the transport closed; the in-flight Scan call returns
// on its next line (or EOF) and Serve exits on the following check.
func (t *StdioTransport) Shutdown(_ context.Context) error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}
