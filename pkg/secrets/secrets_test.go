package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveEnv(t *testing.T) {
	t.Setenv("MCP_TEST_TOKEN", "s3cr3t")
	r := NewResolver()

	value, err := r.Resolve("env://MCP_TEST_TOKEN")
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", value)
}

func TestResolveEnvMissing(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve("env://MCP_DOES_NOT_EXIST_XYZ")
	assert.Error(t, err)
}

func TestResolveFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(path, []byte("  file-secret\n"), 0o600))

	r := NewResolver()
	value, err := r.Resolve("file://" + path)
	require.NoError(t, err)
	assert.Equal(t, "file-secret", value)
}

func TestResolveUnsupportedScheme(t *testing.T) {
	r := NewResolver()
	_, err := r.Resolve("vault://secret/data/foo")
	assert.Error(t, err)
}

func TestIsReference(t *testing.T) {
	assert.True(t, IsReference("env://FOO"))
	assert.True(t, IsReference("file:///etc/foo"))
	assert.False(t, IsReference("plain-string"))
}
