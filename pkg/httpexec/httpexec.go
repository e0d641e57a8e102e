// Package httpexec implements the HTTP executor (C8): direct-mode
// request issuance with URL/port/content-type checks, redirect and
// response-size caps, TLS policy, and retry-with-backoff on transport
// failures and 5xx responses.
package httpexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
	"github.com/stacklok/mcpgateway/pkg/networking"
	"github.com/stacklok/mcpgateway/pkg/security"
)

// Request is the direct-mode HTTP tool's input.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
	Timeout time.Duration
}

// Response is the direct-mode HTTP tool's output.
type Response struct {
	StatusCode      int
	ResponseHeaders map[string]string
	ResponseBody    string
	DurationMs      int64
}

// Options configures an Executor.
type Options struct {
	DefaultTimeout        time.Duration
	MaxRequestBytes       int64
	MaxResponseBytes      int64
	MaxRedirects          int
	AllowLocalConnections bool
	SkipTLSVerification   bool
	IsProduction          bool
	AllowedContentTypes   []string
	RetryMax              int
	RateLimit             security.RateLimitOptions
	URLOverride           security.Predicate
	OverrideStrategy      security.Strategy
}

// Executor issues direct-mode HTTP requests subject to the shared
// security validator.
type Executor struct {
	opts        Options
	validator   *security.Validator
	rateLimiter *security.RateLimiter
	client      *http.Client
}

// New builds an Executor.
func New(opts Options) *Executor {
	if opts.MaxRequestBytes == 0 {
		opts.MaxRequestBytes = 1 << 20
	}
	if opts.MaxResponseBytes == 0 {
		opts.MaxResponseBytes = 10 << 20
	}
	if opts.DefaultTimeout == 0 {
		opts.DefaultTimeout = 30 * time.Second
	}
	return &Executor{
		opts: opts,
		validator: security.New(security.Options{
			AllowLocalConnections: opts.AllowLocalConnections,
			AllowedContentTypes:   opts.AllowedContentTypes,
			URLOverride:           opts.URLOverride,
			OverrideStrategy:      opts.OverrideStrategy,
		}),
		rateLimiter: security.NewRateLimiter(opts.RateLimit),
		client: networking.NewHTTPClient(networking.ClientOptions{
			SkipTLSVerification: opts.SkipTLSVerification,
			IsProduction:        opts.IsProduction,
			MaxRedirects:        opts.MaxRedirects,
			RetryMax:            opts.RetryMax,
		}),
	}
}

// Execute performs the HTTP call. The same pre-flight checks apply
// whether this is reached via the direct-mode tool or the resource
// adapter (C6) — the two paths must not diverge (design note #3).
func (e *Executor) Execute(ctx context.Context, req Request) (*Response, error) {
	if !e.rateLimiter.Allow() {
		return nil, gwerrors.NewExecutionFailedError("http_request: rate limit exceeded", nil)
	}
	if err := e.validator.CheckURL(req.URL); err != nil {
		return nil, gwerrors.NewExecutionSecurityViolationError("http_request: URL rejected", err)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if req.Body != "" {
		if int64(len(req.Body)) > e.opts.MaxRequestBytes {
			return nil, gwerrors.NewExecutionInvalidParametersError("http_request: request body exceeds size cap", nil)
		}
		bodyReader = bytes.NewReader([]byte(req.Body))
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.opts.DefaultTimeout
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, method, req.URL, bodyReader)
	if err != nil {
		return nil, gwerrors.NewExecutionInvalidParametersError("http_request: building request", err)
	}

	for k, v := range req.Headers {
		if err := e.validator.CheckHeaderValue(v); err != nil {
			return nil, gwerrors.NewExecutionSecurityViolationError(
				fmt.Sprintf("http_request: header %q rejected", k), err)
		}
		httpReq.Header.Set(k, v)
	}
	if ct := httpReq.Header.Get("Content-Type"); ct != "" {
		if err := e.validator.CheckContentType(ct); err != nil {
			return nil, gwerrors.NewExecutionSecurityViolationError("http_request: content type rejected", err)
		}
	}

	start := time.Now()
	resp, err := e.client.Do(httpReq)
	duration := time.Since(start)
	if err != nil {
		if reqCtx.Err() != nil {
			return nil, gwerrors.NewExecutionTimeoutError("http_request: timed out", err)
		}
		return nil, gwerrors.NewConnectionFailedError("http_request: request failed", err)
	}
	defer resp.Body.Close()

	body, err := networking.BoundedRead(resp.Body, e.opts.MaxResponseBytes)
	if err != nil {
		return nil, err
	}

	headers := make(map[string]string, len(resp.Header))
	for k, v := range resp.Header {
		headers[k] = strings.Join(v, ", ")
	}

	return &Response{
		StatusCode:      resp.StatusCode,
		ResponseHeaders: headers,
		ResponseBody:    string(body),
		DurationMs:      duration.Milliseconds(),
	}, nil
}
