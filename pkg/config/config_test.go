package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestDefaultConfigHasEveryLeafPopulated(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig()
	assert.Equal(t, TransportStdio, cfg.Transport.Mode)
	assert.Equal(t, 30, cfg.HTTP.TimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, Validate(cfg))
}

func TestResolveDefaultSearch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "mcp.config.json", `{"logging":{"level":"error"}}`)

	restore := chdir(t, dir)
	defer restore()

	result, err := Resolve(Options{})
	require.NoError(t, err)
	assert.Equal(t, SourceDefault, result.Meta.Source)
	assert.Equal(t, filepath.Join(dir, "mcp.config.json"), result.Meta.Path)
	assert.Equal(t, "error", result.Config.Logging.Level)
}

func TestResolveCLIPrecedence(t *testing.T) {
	dir := t.TempDir()
	cliPath := writeFile(t, dir, "cli.json", `{"logging":{"level":"debug"}}`)
	envPath := writeFile(t, dir, "env.json", `{"logging":{"level":"warn"}}`)

	result, err := Resolve(Options{CLIPath: cliPath, EnvPath: envPath})
	require.NoError(t, err)
	assert.Equal(t, SourceCLI, result.Meta.Source)
	assert.Equal(t, "debug", result.Config.Logging.Level)
}

func TestResolveFallsBackOnInvalidCLIWhenAllowed(t *testing.T) {
	dir := t.TempDir()
	cliPath := filepath.Join(dir, "missing.json")
	envPath := writeFile(t, dir, "env.json", `{"logging":{"level":"warn"}}`)

	result, err := Resolve(Options{CLIPath: cliPath, EnvPath: envPath, AllowFallback: true})
	require.NoError(t, err)
	assert.Equal(t, SourceEnv, result.Meta.Source)
}

func TestResolveFailsOnInvalidCLIWhenNotAllowed(t *testing.T) {
	dir := t.TempDir()
	cliPath := filepath.Join(dir, "missing.json")

	_, err := Resolve(Options{CLIPath: cliPath, AllowFallback: false})
	assert.Error(t, err)
}

func TestMergeEnvWinsOverFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	dir := t.TempDir()
	path := writeFile(t, dir, "mcp.config.json", `{"logging":{"level":"error"}}`)

	cfg, err := loadAndValidate(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsBadLoaderDeclaration(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Resources.Loaders = []LoaderDeclaration{{ID: "a", Type: "bogus"}}
	assert.Error(t, Validate(cfg))

	cfg.Resources.Loaders = []LoaderDeclaration{{ID: "a", Type: "local"}}
	assert.Error(t, Validate(cfg))

	cfg.Resources.Loaders = []LoaderDeclaration{{ID: "a", Type: "local", Files: []string{"x.json"}}}
	assert.NoError(t, Validate(cfg))
}

func TestWatcherFallsBackOnInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "mcp.config.json", `{"logging":{"level":"error"}}`)

	var applied *Config
	var appliedMu chanSignal
	errs := make(chan error, 4)

	w, err := NewWatcher(Options{CLIPath: path, AllowFallback: true}, 200,
		func(cfg *Config, _ Meta) { applied = cfg; appliedMu.signal() },
		func(e error) { errs <- e },
	)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, []byte("not valid json"), 0o644))

	select {
	case e := <-errs:
		assert.Error(t, e)
	case <-time.After(2 * time.Second):
		t.Fatal("expected onError to fire within debounce window")
	}
	// previous good tree (nil, since onApply never fired yet in this
	// test) remains the only state; a real caller keeps serving it.
	_ = applied
}

type chanSignal struct{ ch chan struct{} }

func (c *chanSignal) signal() {
	if c.ch == nil {
		c.ch = make(chan struct{}, 1)
	}
	select {
	case c.ch <- struct{}{}:
	default:
	}
}

// chdir changes the working directory for the duration of a test and
// returns a restore function.
func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}
