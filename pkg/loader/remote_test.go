package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteResourceLoaderFetchesAndCaches(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[` + sampleResourceJSON + `]`))
	}))
	defer srv.Close()

	l := NewRemoteResourceLoader("catalog", RemoteOptions{
		BaseURL:               srv.URL,
		AllowLocalConnections: true,
		CacheTTL:              time.Minute,
	})

	result, err := l.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Resources, 1)
	assert.Equal(t, "remote", string(result.Resources[0].LoaderType))

	_, err = l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, hits, "second Load should be served from cache")
}

func TestRemoteResourceLoaderRejectsLocalByDefault(t *testing.T) {
	l := NewRemoteResourceLoader("catalog", RemoteOptions{BaseURL: "http://127.0.0.1:9/catalog"})
	_, err := l.Load(context.Background())
	assert.Error(t, err)
}

func TestRemoteResourceLoaderDoesNotRetry4xx(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	l := NewRemoteResourceLoader("catalog", RemoteOptions{
		BaseURL:               srv.URL,
		AllowLocalConnections: true,
		RetryMax:              2,
	})

	_, err := l.Load(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 1, hits, "4xx responses must not be retried")
}
