package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gopkg.in/yaml.v3"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
	"github.com/stacklok/mcpgateway/pkg/networking"
	"github.com/stacklok/mcpgateway/pkg/resource"
	"github.com/stacklok/mcpgateway/pkg/security"
)

// RemoteAuthType discriminates how the remote catalog authenticates.
type RemoteAuthType string

// Supported remote-loader auth mechanisms.
const (
	RemoteAuthNone   RemoteAuthType = ""
	RemoteAuthBasic  RemoteAuthType = "basic"
	RemoteAuthBearer RemoteAuthType = "bearer"
	RemoteAuthAPIKey RemoteAuthType = "apikey"
)

// RemoteOptions configures a RemoteResourceLoader.
type RemoteOptions struct {
	BaseURL               string
	AuthType              RemoteAuthType
	AuthCredential        string // resolved secret value: password, bearer token, or api key
	APIKeyHeader          string // defaults to X-API-Key
	Headers               map[string]string
	CacheTTL              time.Duration
	IsProduction          bool
	AllowLocalConnections bool
	MaxResponseBytes      int64
	RetryMax              int
	RetryBaseMs           int
	RetryCapMs            int
	URLOverride           security.Predicate
	OverrideStrategy      security.Strategy
}

type cacheEntry struct {
	fetchedAt time.Time
	result    LoadResult
}

// RemoteResourceLoader fetches resource definitions from an HTTP
// catalog endpoint, with TTL caching, retry-with-backoff on transport
// errors and 5xx, and pre-flight URL safety checks.
type RemoteResourceLoader struct {
	id   string
	opts RemoteOptions

	httpClient *http.Client
	validator  *security.Validator

	mu    sync.Mutex
	cache *cacheEntry
}

// NewRemoteResourceLoader builds a RemoteResourceLoader for the given id.
func NewRemoteResourceLoader(id string, opts RemoteOptions) *RemoteResourceLoader {
	if opts.MaxResponseBytes == 0 {
		opts.MaxResponseBytes = 10 << 20
	}
	return &RemoteResourceLoader{
		id:   id,
		opts: opts,
		httpClient: networking.NewHTTPClient(networking.ClientOptions{
			IsProduction: opts.IsProduction,
			RetryMax:     0, // retries are driven by this loader's own backoff loop, not the transport
		}),
		validator: security.New(security.Options{
			AllowLocalConnections: opts.AllowLocalConnections,
			URLOverride:           opts.URLOverride,
			OverrideStrategy:      opts.OverrideStrategy,
		}),
	}
}

// ID implements Loader.
func (l *RemoteResourceLoader) ID() string { return l.id }

// Type implements Loader.
func (l *RemoteResourceLoader) Type() resource.LoaderType { return resource.LoaderTypeRemote }

// Load implements Loader, serving a cached result within TTL.
func (l *RemoteResourceLoader) Load(ctx context.Context) (LoadResult, error) {
	l.mu.Lock()
	if l.cache != nil && l.opts.CacheTTL > 0 && time.Since(l.cache.fetchedAt) < l.opts.CacheTTL {
		result := l.cache.result
		l.mu.Unlock()
		return result, nil
	}
	l.mu.Unlock()
	return l.Refresh(ctx)
}

// Refresh implements Loader, bypassing the cache.
func (l *RemoteResourceLoader) Refresh(ctx context.Context) (LoadResult, error) {
	if l.opts.IsProduction && !strings.HasPrefix(l.opts.BaseURL, "https://") {
		return LoadResult{}, gwerrors.NewResourceLoadFailedError(
			"remote loader "+l.id+": HTTPS is required in production", nil)
	}
	if err := l.validator.CheckURL(l.opts.BaseURL); err != nil {
		return LoadResult{}, gwerrors.NewResourceLoadFailedError("remote loader "+l.id+": URL rejected by security policy", err)
	}

	body, contentType, err := l.fetchWithRetry(ctx)
	if err != nil {
		return LoadResult{}, err
	}

	resources, err := l.decode(body, contentType)
	result := LoadResult{Success: err == nil, Resources: resources}
	if err != nil {
		result.Errors = []error{err}
	}

	l.mu.Lock()
	l.cache = &cacheEntry{fetchedAt: time.Now(), result: result}
	l.mu.Unlock()

	return result, nil
}

func (l *RemoteResourceLoader) fetchWithRetry(ctx context.Context) ([]byte, string, error) {
	base := time.Duration(l.opts.RetryBaseMs) * time.Millisecond
	if base <= 0 {
		base = 200 * time.Millisecond
	}
	capMs := time.Duration(l.opts.RetryCapMs) * time.Millisecond
	if capMs <= 0 {
		capMs = 5 * time.Second
	}
	maxRetries := l.opts.RetryMax
	if maxRetries <= 0 {
		maxRetries = 3
	}

	type fetched struct {
		body        []byte
		contentType string
	}

	op := func() (fetched, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.opts.BaseURL, nil)
		if err != nil {
			return fetched{}, backoff.Permanent(err)
		}
		l.applyAuth(req)

		resp, err := l.httpClient.Do(req)
		if err != nil {
			return fetched{}, err // retryable transport error
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return fetched{}, backoff.Permanent(
				gwerrors.NewResourceLoadFailedError(fmt.Sprintf("remote loader %s: HTTP %d", l.id, resp.StatusCode), nil))
		}
		if resp.StatusCode >= 500 {
			return fetched{}, gwerrors.NewConnectionFailedError(fmt.Sprintf("remote loader %s: HTTP %d", l.id, resp.StatusCode), nil)
		}

		data, err := networking.BoundedRead(resp.Body, l.opts.MaxResponseBytes)
		if err != nil {
			return fetched{}, backoff.Permanent(err)
		}
		return fetched{body: data, contentType: resp.Header.Get("Content-Type")}, nil
	}

	result, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(base),
			backoff.WithMaxInterval(capMs),
		)),
		backoff.WithMaxTries(uint(maxRetries+1)),
	)
	if err != nil {
		return nil, "", gwerrors.NewConnectionFailedError("remote loader "+l.id+": fetch failed", err)
	}
	return result.body, result.contentType, nil
}

func (l *RemoteResourceLoader) applyAuth(req *http.Request) {
	switch l.opts.AuthType {
	case RemoteAuthBasic:
		parts := strings.SplitN(l.opts.AuthCredential, ":", 2)
		user := parts[0]
		pass := ""
		if len(parts) == 2 {
			pass = parts[1]
		}
		req.SetBasicAuth(user, pass)
	case RemoteAuthBearer:
		req.Header.Set("Authorization", "Bearer "+l.opts.AuthCredential)
	case RemoteAuthAPIKey:
		header := l.opts.APIKeyHeader
		if header == "" {
			header = "X-API-Key"
		}
		req.Header.Set(header, l.opts.AuthCredential)
	}
	for k, v := range l.opts.Headers {
		req.Header.Set(k, v)
	}
}

func (l *RemoteResourceLoader) decode(body []byte, contentType string) ([]*resource.Resource, error) {
	isYAML := strings.Contains(contentType, "yaml") || strings.Contains(contentType, "yml")

	var raw any
	var err error
	if isYAML {
		err = yaml.Unmarshal(body, &raw)
	} else {
		err = json.Unmarshal(body, &raw)
	}
	if err != nil {
		return nil, gwerrors.NewResourceLoadFailedError("remote loader "+l.id+": decoding catalog response", err)
	}

	var entries []any
	switch v := raw.(type) {
	case []any:
		entries = v
	default:
		entries = []any{v}
	}

	now := time.Now().UTC()
	resources := make([]*resource.Resource, 0, len(entries))
	for _, entry := range entries {
		encoded, err := json.Marshal(entry)
		if err != nil {
			return nil, gwerrors.NewResourceInvalidError("remote loader "+l.id+": re-encoding catalog entry", err)
		}
		var r resource.Resource
		if err := json.Unmarshal(encoded, &r); err != nil {
			return nil, gwerrors.NewResourceInvalidError("remote loader "+l.id+": decoding catalog entry", err)
		}
		r.LoaderType = resource.LoaderTypeRemote
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

// Validate implements Loader.
func (l *RemoteResourceLoader) Validate(r *resource.Resource) error {
	return r.Validate()
}
