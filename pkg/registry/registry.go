// Package registry implements the in-memory, indexed store of
// resources (C4). The live registry is swapped atomically on config
// reload; individual mutations notify subscribed watchers.
package registry

import (
	"sync"
	"time"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
	"github.com/stacklok/mcpgateway/pkg/resource"
)

// ChangeKind discriminates a registry mutation notification.
type ChangeKind string

// Change kinds delivered to subscribed watchers.
const (
	ChangeAdded   ChangeKind = "added"
	ChangeUpdated ChangeKind = "updated"
	ChangeRemoved ChangeKind = "removed"
)

// Change is delivered to every subscriber on a registry mutation.
type Change struct {
	Kind       ChangeKind
	Identifier string
	Resource   *resource.Resource
}

// Watcher receives registry change notifications.
type Watcher func(Change)

// Filter narrows a List call.
type Filter struct {
	Type         resource.Type
	LoaderType   resource.LoaderType
	Capabilities []string
	Labels       map[string]string
}

// Pagination bounds a List call. Limit is clamped to [1,1000].
type Pagination struct {
	Limit  int
	Offset int
}

// ListResult is the outcome of a List call.
type ListResult struct {
	Resources     []*resource.Resource
	Total         int
	FilteredCount int
}

type entry struct {
	identifier string
	res        *resource.Resource
}

// Registry is the in-memory indexed resource store.
type Registry struct {
	mu       sync.RWMutex
	byID     map[string]*entry
	watchers []Watcher
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byID: make(map[string]*entry)}
}

// Subscribe registers a watcher for change notifications. It returns
// an unsubscribe function.
func (r *Registry) Subscribe(w Watcher) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchers = append(r.watchers, w)
	idx := len(r.watchers) - 1
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.watchers[idx] = nil
	}
}

func (r *Registry) notify(c Change) {
	r.mu.RLock()
	watchers := make([]Watcher, len(r.watchers))
	copy(watchers, r.watchers)
	r.mu.RUnlock()
	for _, w := range watchers {
		if w != nil {
			w(c)
		}
	}
}

// RegisterOptions controls Register's duplicate handling.
type RegisterOptions struct {
	Overwrite bool
}

// Register adds a resource under identifier. Duplicate identifiers are
// rejected unless Overwrite is set.
func (r *Registry) Register(identifier string, res *resource.Resource, opts RegisterOptions) error {
	if identifier == "" {
		return gwerrors.NewResourceInvalidError("identifier must not be empty", nil)
	}
	if err := res.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	_, exists := r.byID[identifier]
	if exists && !opts.Overwrite {
		r.mu.Unlock()
		return gwerrors.NewResourceInvalidError("resource "+identifier+" already registered", nil)
	}
	now := time.Now().UTC()
	if res.CreatedAt.IsZero() {
		res.CreatedAt = now
	}
	res.UpdatedAt = now
	r.byID[identifier] = &entry{identifier: identifier, res: res}
	r.mu.Unlock()

	kind := ChangeAdded
	if exists {
		kind = ChangeUpdated
	}
	r.notify(Change{Kind: kind, Identifier: identifier, Resource: res})
	return nil
}

// ResolveResult is the outcome of a Resolve call.
type ResolveResult struct {
	Found    bool
	Resource *resource.Resource
	Reason   string
}

// Resolve performs an O(1) lookup by canonical identifier.
func (r *Registry) Resolve(identifier string) ResolveResult {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[identifier]
	if !ok {
		return ResolveResult{Found: false, Reason: "no resource registered under " + identifier}
	}
	return ResolveResult{Found: true, Resource: e.res}
}

// List returns resources matching filter, paginated.
func (r *Registry) List(filter Filter, pagination Pagination) ListResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit := pagination.Limit
	if limit <= 0 {
		limit = 1000
	}
	if limit > 1000 {
		limit = 1000
	}
	offset := pagination.Offset
	if offset < 0 {
		offset = 0
	}

	total := len(r.byID)
	var matched []*resource.Resource
	for _, e := range r.byID {
		if matchesFilter(e.res, filter) {
			matched = append(matched, e.res)
		}
	}
	filteredCount := len(matched)

	if offset >= len(matched) {
		return ListResult{Resources: nil, Total: total, FilteredCount: filteredCount}
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	return ListResult{Resources: matched[offset:end], Total: total, FilteredCount: filteredCount}
}

func matchesFilter(res *resource.Resource, f Filter) bool {
	if f.Type != "" && res.Type != f.Type {
		return false
	}
	if f.LoaderType != "" && res.LoaderType != f.LoaderType {
		return false
	}
	for _, cap := range f.Capabilities {
		if !res.HasCapability(cap) {
			return false
		}
	}
	for k, v := range f.Labels {
		if res.Labels[k] != v {
			return false
		}
	}
	return true
}

// Remove deletes a resource. It fails unless force is true when live
// dependents exist.
func (r *Registry) Remove(identifier string, force bool) error {
	r.mu.Lock()
	if !force {
		for id, e := range r.byID {
			if id == identifier {
				continue
			}
			for _, dep := range e.res.Metadata.Dependencies {
				if dep == identifier {
					r.mu.Unlock()
					return gwerrors.NewResourceInvalidError(
						"cannot remove "+identifier+": has live dependents", nil)
				}
			}
		}
	}
	e, ok := r.byID[identifier]
	if !ok {
		r.mu.Unlock()
		return gwerrors.NewResourceNotFoundError("resource "+identifier+" not found", nil)
	}
	delete(r.byID, identifier)
	r.mu.Unlock()

	r.notify(Change{Kind: ChangeRemoved, Identifier: identifier, Resource: e.res})
	return nil
}

// SetEnabled flips a resource's Enabled flag and notifies watchers.
func (r *Registry) SetEnabled(identifier string, enabled bool) error {
	r.mu.Lock()
	e, ok := r.byID[identifier]
	if !ok {
		r.mu.Unlock()
		return gwerrors.NewResourceNotFoundError("resource "+identifier+" not found", nil)
	}
	e.res.Enabled = enabled
	e.res.UpdatedAt = time.Now().UTC()
	r.mu.Unlock()

	r.notify(Change{Kind: ChangeUpdated, Identifier: identifier, Resource: e.res})
	return nil
}

// GetDependencies returns the identifiers a resource depends on.
func (r *Registry) GetDependencies(identifier string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[identifier]
	if !ok {
		return nil, gwerrors.NewResourceNotFoundError("resource "+identifier+" not found", nil)
	}
	return append([]string(nil), e.res.Metadata.Dependencies...), nil
}

// GetDependents returns the identifiers of resources that list
// identifier as a dependency.
func (r *Registry) GetDependents(identifier string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.byID[identifier]; !ok {
		return nil, gwerrors.NewResourceNotFoundError("resource "+identifier+" not found", nil)
	}
	var dependents []string
	for id, e := range r.byID {
		for _, dep := range e.res.Metadata.Dependencies {
			if dep == identifier {
				dependents = append(dependents, id)
				break
			}
		}
	}
	return dependents, nil
}

// Snapshot returns every registered resource, keyed by identifier.
// Used to build a fresh registry for atomic swap-on-reload.
func (r *Registry) Snapshot() map[string]*resource.Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]*resource.Resource, len(r.byID))
	for id, e := range r.byID {
		out[id] = e.res
	}
	return out
}

// Handle is an atomically-swappable pointer to the live registry,
// implementing the copy-on-write snapshot pattern: readers always see
// a complete, consistent registry, never one being rebuilt.
type Handle struct {
	mu  sync.RWMutex
	reg *Registry
}

// NewHandle wraps an initial registry in a swappable handle.
func NewHandle(initial *Registry) *Handle {
	return &Handle{reg: initial}
}

// Load returns the currently live registry.
func (h *Handle) Load() *Registry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.reg
}

// Swap atomically replaces the live registry.
func (h *Handle) Swap(next *Registry) {
	h.mu.Lock()
	h.reg = next
	h.mu.Unlock()
}
