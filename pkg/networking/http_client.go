// Package networking provides shared HTTP client construction and
// bounded-fetch helpers used by the remote resource loader (C3) and
// the HTTP executor (C8): TLS policy, redirect caps, and response-size
// enforcement independent from Content-Length.
package networking

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
)

// ClientOptions configures NewHTTPClient.
type ClientOptions struct {
	SkipTLSVerification bool
	IsProduction        bool
	MaxRedirects        int
	RetryMax            int
}

// NewHTTPClient builds a retryable HTTP client. TLS verification is
// always enforced in production regardless of SkipTLSVerification.
func NewHTTPClient(opts ClientOptions) *http.Client {
	insecure := opts.SkipTLSVerification && !opts.IsProduction

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: insecure}, //nolint:gosec // operator opt-in, non-production only
	}

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Transport = transport
	retryClient.RetryMax = opts.RetryMax
	retryClient.Logger = nil
	retryClient.CheckRetry = func(_ context.Context, resp *http.Response, err error) (bool, error) {
		if err != nil {
			return true, nil
		}
		if resp == nil {
			return false, nil
		}
		// Only transport errors and 5xx are retried; 4xx must not be.
		return resp.StatusCode >= 500, nil
	}

	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}

	client := retryClient.StandardClient()
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
	return client
}

// BoundedRead reads at most maxBytes+1 bytes from r and fails if more
// than maxBytes were present, enforcing a response-size cap
// independent of any Content-Length header.
func BoundedRead(r io.Reader, maxBytes int64) ([]byte, error) {
	limited := io.LimitReader(r, maxBytes+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, gwerrors.NewConnectionFailedError("reading response body", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, gwerrors.NewExecutionFailedError(
			fmt.Sprintf("response body exceeds %d byte cap", maxBytes), nil)
	}
	return data, nil
}
