package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
)

// ParseBytes dispatches parsing by file extension. JSON and YAML are
// supported; .js/.mjs/.cjs sources are deliberately not supported (see
// the design notes on unsafe JS-source config evaluation) and are
// rejected with a clear configuration error rather than silently
// ignored.
func ParseBytes(path string, data []byte) (*Config, error) {
	ext := strings.ToLower(filepath.Ext(path))

	cfg := DefaultConfig()
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, gwerrors.NewConfigParseError(fmt.Sprintf("parsing %s as JSON", path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, gwerrors.NewConfigParseError(fmt.Sprintf("parsing %s as YAML", path), err)
		}
	case ".js", ".mjs", ".cjs":
		return nil, gwerrors.NewConfigParseError(
			fmt.Sprintf("%s: JS-source config files are not supported; use .json or .yaml", path), nil)
	default:
		return nil, gwerrors.NewConfigParseError(fmt.Sprintf("%s: unrecognized config file extension", path), nil)
	}
	return cfg, nil
}

// CandidateBasenames are the filenames tried against each default
// candidate directory, in order. .js/.mjs/.cjs are listed for parity
// with the source grammar but ParseBytes refuses them; they are
// skipped during the default-candidate scan (see resolveDefaults).
var CandidateBasenames = []string{
	"mcp.config.json",
	"mcp.config.yaml",
	"mcp.config.yml",
	"mcp.config.js",
	"mcp.config.mjs",
	"mcp.config.cjs",
}
