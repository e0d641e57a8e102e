package networking

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitHostPort(t *testing.T) {
	t.Parallel()

	host, port, err := SplitHostPort("example.com:2222", 22)
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, 2222, port)

	host, port, err = SplitHostPort("example.com", 22)
	require.NoError(t, err)
	assert.Equal(t, "example.com", host)
	assert.Equal(t, 22, port)

	host, port, err = SplitHostPort("[::1]:2200", 22)
	require.NoError(t, err)
	assert.Equal(t, "::1", host)
	assert.Equal(t, 2200, port)
}

func TestBoundedRead(t *testing.T) {
	t.Parallel()

	data, err := BoundedRead(bytes.NewReader([]byte("hello")), 10)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	_, err = BoundedRead(bytes.NewReader([]byte("hello world")), 5)
	assert.Error(t, err)
}

func TestNewHTTPClientBuilds(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient(ClientOptions{SkipTLSVerification: true, IsProduction: true})
	require.NotNil(t, client)
	require.NotNil(t, client.CheckRedirect)
}
