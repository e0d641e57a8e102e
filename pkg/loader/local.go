package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
	"github.com/stacklok/mcpgateway/pkg/resource"
)

// LocalFilter narrows which resources a LocalFileLoader admits.
type LocalFilter struct {
	Types     []resource.Type
	Groups    []string
	Enabled   *bool
	Tags      []string
	NameRegex *regexp.Regexp
}

// LocalFileLoader reads resource definitions from one or more JSON or
// YAML files and/or a directory of such files.
type LocalFileLoader struct {
	id     string
	Files  []string
	Dir    string
	Filter LocalFilter
}

// NewLocalFileLoader builds a LocalFileLoader for the given id.
func NewLocalFileLoader(id string, files []string, dir string, filter LocalFilter) *LocalFileLoader {
	return &LocalFileLoader{id: id, Files: files, Dir: dir, Filter: filter}
}

// ID implements Loader.
func (l *LocalFileLoader) ID() string { return l.id }

// Type implements Loader.
func (l *LocalFileLoader) Type() resource.LoaderType { return resource.LoaderTypeLocal }

// Load implements Loader.
func (l *LocalFileLoader) Load(_ context.Context) (LoadResult, error) {
	files := append([]string(nil), l.Files...)
	if l.Dir != "" {
		entries, err := os.ReadDir(l.Dir)
		if err != nil {
			return LoadResult{}, gwerrors.NewResourceLoadFailedError("reading loader directory "+l.Dir, err)
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(e.Name()))
			if ext == ".json" || ext == ".yaml" || ext == ".yml" {
				files = append(files, filepath.Join(l.Dir, e.Name()))
			}
		}
	}

	result := LoadResult{Success: true}
	now := time.Now().UTC()

	for _, path := range files {
		resources, err := l.loadFile(path, now)
		if err != nil {
			result.Success = false
			result.Errors = append(result.Errors, err)
			continue
		}
		for _, r := range resources {
			if l.admits(r) {
				result.Resources = append(result.Resources, r)
			}
		}
	}
	return result, nil
}

func (l *LocalFileLoader) loadFile(path string, now time.Time) ([]*resource.Resource, error) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-configured loader path
	if err != nil {
		return nil, gwerrors.NewResourceLoadFailedError("reading resource file "+path, err)
	}

	var raw any
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, gwerrors.NewResourceLoadFailedError("parsing resource file "+path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, gwerrors.NewResourceLoadFailedError("parsing resource file "+path, err)
		}
	default:
		return nil, gwerrors.NewResourceLoadFailedError(fmt.Sprintf("%s: unsupported resource file extension", path), nil)
	}

	var entries []any
	switch v := raw.(type) {
	case []any:
		entries = v
	default:
		entries = []any{v}
	}

	resources := make([]*resource.Resource, 0, len(entries))
	for _, entry := range entries {
		reencoded, err := json.Marshal(entry)
		if err != nil {
			return nil, gwerrors.NewResourceLoadFailedError("re-encoding resource entry from "+path, err)
		}
		var r resource.Resource
		if err := json.Unmarshal(reencoded, &r); err != nil {
			return nil, gwerrors.NewResourceInvalidError("decoding resource entry from "+path, err)
		}
		r.LoaderType = resource.LoaderTypeLocal
		r.LoaderID = l.id
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		if err := r.Validate(); err != nil {
			return nil, err
		}
		resources = append(resources, &r)
	}
	return resources, nil
}

func (l *LocalFileLoader) admits(r *resource.Resource) bool {
	f := l.Filter
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if r.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Groups) > 0 {
		found := false
		for _, g := range f.Groups {
			if r.Metadata.Group == g {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Enabled != nil && r.Enabled != *f.Enabled {
		return false
	}
	if len(f.Tags) > 0 {
		found := false
		for _, want := range f.Tags {
			for _, got := range r.Metadata.Tags {
				if want == got {
					found = true
					break
				}
			}
		}
		if !found {
			return false
		}
	}
	if f.NameRegex != nil && !f.NameRegex.MatchString(r.Name) {
		return false
	}
	return true
}

// Validate implements Loader.
func (l *LocalFileLoader) Validate(r *resource.Resource) error {
	return r.Validate()
}

// Refresh implements Loader; local files have no cache to bypass.
func (l *LocalFileLoader) Refresh(ctx context.Context) (LoadResult, error) {
	return l.Load(ctx)
}
