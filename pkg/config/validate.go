package config

import (
	"fmt"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
)

// Validate enforces the structural invariants from §4.1: every loader
// declaration must carry a non-empty id, a recognized type, and that
// type's required fields. Unknown keys are preserved by the decoder
// and never rejected here.
func Validate(cfg *Config) error {
	if cfg.Transport.Mode != TransportStdio && cfg.Transport.Mode != TransportSSE && cfg.Transport.Mode != TransportHTTP {
		return gwerrors.NewConfigValidationError(
			fmt.Sprintf("transport.mode %q is not one of stdio|sse|http", cfg.Transport.Mode), nil)
	}

	seen := make(map[string]bool, len(cfg.Resources.Loaders))
	for i, l := range cfg.Resources.Loaders {
		if l.ID == "" {
			return gwerrors.NewConfigValidationError(
				fmt.Sprintf("resources.loaders[%d]: id is required", i), nil)
		}
		if seen[l.ID] {
			return gwerrors.NewConfigCircularReferenceError(
				fmt.Sprintf("resources.loaders: duplicate loader id %q", l.ID), nil)
		}
		seen[l.ID] = true

		switch l.Type {
		case "local":
			if len(l.Files) == 0 && l.Dir == "" {
				return gwerrors.NewConfigValidationError(
					fmt.Sprintf("resources.loaders[%d] (%s): local loader requires files or dir", i, l.ID), nil)
			}
		case "remote":
			if l.BaseURL == "" {
				return gwerrors.NewConfigValidationError(
					fmt.Sprintf("resources.loaders[%d] (%s): remote loader requires baseUrl", i, l.ID), nil)
			}
		default:
			return gwerrors.NewConfigValidationError(
				fmt.Sprintf("resources.loaders[%d] (%s): type must be local or remote, got %q", i, l.ID, l.Type), nil)
		}
	}
	return nil
}
