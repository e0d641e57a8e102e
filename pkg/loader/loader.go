// Package loader implements the pluggable resource loaders (C3): a
// local-file loader and a remote-HTTP-catalog loader, both exposing
// the uniform Loader contract consumed by the registry builder.
package loader

import (
	"context"

	"github.com/stacklok/mcpgateway/pkg/resource"
)

// LoadResult is returned by every Loader's Load call. Success is false
// iff any source within the loader failed; partial results are still
// returned alongside the per-source errors.
type LoadResult struct {
	Success   bool
	Resources []*resource.Resource
	Errors    []error
}

// Loader is the uniform contract both concrete loaders satisfy.
type Loader interface {
	// ID returns the configured loader instance id.
	ID() string
	// Type returns local or remote.
	Type() resource.LoaderType
	// Load produces the current resource set.
	Load(ctx context.Context) (LoadResult, error)
	// Validate checks a single resource beyond the generic
	// resource.Validate invariants (loader-specific filter rules).
	Validate(r *resource.Resource) error
	// Refresh forces a reload, bypassing any cache.
	Refresh(ctx context.Context) (LoadResult, error)
}
