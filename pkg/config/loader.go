package config

import (
	"os"
	"path/filepath"
	"time"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
	"github.com/stacklok/mcpgateway/pkg/logger"
)

// Options controls a single Resolve call.
type Options struct {
	// CLIPath is the --config flag value, if any.
	CLIPath string
	// EnvPath is the MCP_CONFIG environment variable value, if any.
	EnvPath string
	// AllowFallback controls behavior when CLIPath/EnvPath is present
	// but unreadable or invalid: false fails immediately, true
	// continues down the precedence chain.
	AllowFallback bool
}

// Result is returned by Resolve: the fully merged, validated config
// tree plus its provenance.
type Result struct {
	Config *Config
	Meta   Meta
}

// Resolve runs the full precedence → parse → validate → merge
// pipeline: CLI path wins if loadable; otherwise env path; otherwise
// the first default candidate that both parses and validates.
func Resolve(opts Options) (*Result, error) {
	start := time.Now()

	if opts.CLIPath != "" {
		cfg, err := loadAndValidate(opts.CLIPath)
		if err == nil {
			return finish(cfg, SourceCLI, opts.CLIPath, start), nil
		}
		logger.Warnf("config: --config %s failed to load: %v", opts.CLIPath, err)
		if !opts.AllowFallback {
			return nil, err
		}
	}

	if opts.EnvPath != "" {
		cfg, err := loadAndValidate(opts.EnvPath)
		if err == nil {
			return finish(cfg, SourceEnv, opts.EnvPath, start), nil
		}
		logger.Warnf("config: MCP_CONFIG=%s failed to load: %v", opts.EnvPath, err)
		if !opts.AllowFallback {
			return nil, err
		}
	}

	for _, dir := range defaultCandidateDirs() {
		for _, base := range CandidateBasenames {
			path := filepath.Join(dir, base)
			cfg, err := loadAndValidate(path)
			if err != nil {
				continue
			}
			return finish(cfg, SourceDefault, path, start), nil
		}
	}

	return nil, gwerrors.NewConfigNotFoundError("no config candidate resolved", nil)
}

func finish(cfg *Config, source Source, path string, start time.Time) *Result {
	return &Result{
		Config: cfg,
		Meta: Meta{
			Source:     source,
			Path:       path,
			DurationMs: time.Since(start).Milliseconds(),
		},
	}
}

// loadAndValidate reads path, parses it over a fresh default tree
// (so every unset leaf still has a default), deep-merges the file
// layer over the defaults, re-applies env overrides, and validates
// the result.
func loadAndValidate(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from CLI flag, env var, or operator-controlled default candidates
	if err != nil {
		return nil, gwerrors.NewConfigNotFoundError("reading config file "+path, err)
	}

	fileLayer, err := ParseBytes(path, data)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(DefaultConfig(), fileLayer)
	if err != nil {
		return nil, err
	}
	merged = ApplyEnv(merged)

	if err := Validate(merged); err != nil {
		return nil, err
	}
	return merged, nil
}

// defaultCandidateDirs returns the ordered cwd → user-config-dir →
// system-config-dir search path.
func defaultCandidateDirs() []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if userCfg, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(userCfg, "mcp-gateway"))
	}
	dirs = append(dirs, systemConfigDir())
	return dirs
}

func systemConfigDir() string {
	if dir := os.Getenv("MCP_SYSTEM_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/mcp-gateway"
}
