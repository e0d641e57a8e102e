package transport

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoDispatch(_ context.Context, raw []byte) []byte {
	return append([]byte(`{"echoed":`), append(raw, '}')...)
}

func TestStdioTransportDispatchesEachLine(t *testing.T) {
	in := strings.NewReader("{\"a\":1}\n{\"a\":2}\n")
	var out bytes.Buffer

	tr := NewStdioTransport(in, &out, echoDispatch)
	require.NoError(t, tr.Serve(context.Background()))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"a":1`)
	assert.Contains(t, lines[1], `"a":2`)
}

func TestStdioTransportSkipsBlankLinesAndNilResponses(t *testing.T) {
	in := strings.NewReader("\n   \n{\"a\":1}\n")
	var out bytes.Buffer

	calls := 0
	tr := NewStdioTransport(in, &out, func(_ context.Context, raw []byte) []byte {
		calls++
		return nil
	})
	require.NoError(t, tr.Serve(context.Background()))
	assert.Equal(t, 1, calls)
	assert.Empty(t, out.String())
}

func TestStdioTransportShutdownStopsServe(t *testing.T) {
	in := strings.NewReader("{\"a\":1}\n{\"a\":2}\n{\"a\":3}\n")
	var out bytes.Buffer

	tr := NewStdioTransport(in, &out, echoDispatch)
	require.NoError(t, tr.Shutdown(context.Background()))
	require.NoError(t, tr.Serve(context.Background()))
	assert.Empty(t, out.String())
}
