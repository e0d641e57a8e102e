// Package adapter implements the tool adapters (C6): translating
// resource-mode tool calls (http_request_resource, ssh_exec_resource)
// into direct-mode calls by resolving the target resource, checking
// its capability, and resolving its credential reference.
package adapter

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
	"github.com/stacklok/mcpgateway/pkg/httpexec"
	"github.com/stacklok/mcpgateway/pkg/registry"
	"github.com/stacklok/mcpgateway/pkg/resource"
	"github.com/stacklok/mcpgateway/pkg/secrets"
	"github.com/stacklok/mcpgateway/pkg/sshexec"
)

// Adapter resolves resource-mode calls against the registry and
// delegates to the direct-mode executors. Adapters never mutate the
// resolved resource record.
type Adapter struct {
	reg      *registry.Handle
	resolver *secrets.Resolver
	http     *httpexec.Executor
	ssh      *sshexec.Executor
}

// New builds an Adapter over a live, hot-reloadable registry handle.
func New(reg *registry.Handle, resolver *secrets.Resolver, httpExec *httpexec.Executor, sshExec *sshexec.Executor) *Adapter {
	return &Adapter{reg: reg, resolver: resolver, http: httpExec, ssh: sshExec}
}

func (a *Adapter) resolve(identifier, requiredCapability string) (*resource.Resource, error) {
	result := a.reg.Load().Resolve(identifier)
	if !result.Found {
		return nil, gwerrors.NewResourceNotFoundError("resource "+identifier+" not found", nil)
	}
	res := result.Resource
	if !res.Enabled {
		return nil, gwerrors.NewResourceDisabledError("resource "+identifier+" is disabled", nil)
	}
	if !res.HasCapability(requiredCapability) {
		return nil, gwerrors.NewExecutionPermissionDeniedError(
			fmt.Sprintf("resource %s lacks required capability %s", identifier, requiredCapability), nil)
	}
	return res, nil
}

func (a *Adapter) resolveCredential(res *resource.Resource) (string, error) {
	if res.Auth.CredentialRef == "" {
		return "", nil
	}
	return a.resolver.Resolve(res.Auth.CredentialRef)
}

// HTTPRequestResourceParams is the resource-mode HTTP tool's input.
type HTTPRequestResourceParams struct {
	Method   string
	Resource string
	Path     string
	Headers  map[string]string
	Body     string
	Timeout  time.Duration
}

// HTTPRequestResource implements http_request_resource.
func (a *Adapter) HTTPRequestResource(ctx context.Context, p HTTPRequestResourceParams) (*httpexec.Response, error) {
	res, err := a.resolve(p.Resource, resource.CapabilityHTTPRequest)
	if err != nil {
		return nil, err
	}

	token, err := a.resolveCredential(res)
	if err != nil {
		return nil, err
	}

	fullURL, err := joinURL(res.Connection.BaseURL, p.Path)
	if err != nil {
		return nil, gwerrors.NewExecutionInvalidParametersError("http_request_resource: invalid path", err)
	}

	headers := make(map[string]string, len(res.Connection.DefaultHeaders)+len(p.Headers))
	for k, v := range res.Connection.DefaultHeaders {
		headers[k] = v
	}
	for k, v := range p.Headers {
		headers[k] = v
	}
	if token != "" {
		if _, set := headerCaseInsensitive(headers, "Authorization"); !set {
			headers["Authorization"] = "Bearer " + token
		}
	}

	return a.http.Execute(ctx, httpexec.Request{
		Method:  p.Method,
		URL:     fullURL,
		Headers: headers,
		Body:    p.Body,
		Timeout: p.Timeout,
	})
}

func headerCaseInsensitive(headers map[string]string, key string) (string, bool) {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return "", false
}

func joinURL(baseURL, path string) (string, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	if path == "" {
		return base.String(), nil
	}
	ref, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(ref).String(), nil
}

// SSHExecResourceParams is the resource-mode SSH tool's input.
type SSHExecResourceParams struct {
	Resource string
	Command  string
	Timeout  time.Duration
}

// SSHExecResource implements ssh_exec_resource.
func (a *Adapter) SSHExecResource(ctx context.Context, p SSHExecResourceParams) (*sshexec.Result, error) {
	res, err := a.resolve(p.Resource, resource.CapabilitySSHExec)
	if err != nil {
		return nil, err
	}

	secret, err := a.resolveCredential(res)
	if err != nil {
		return nil, err
	}

	return a.ssh.Execute(ctx, sshexec.Request{
		Host:     res.Connection.Host,
		Port:     res.Connection.Port,
		Username: res.Connection.Username,
		Password: secret,
		Command:  p.Command,
		Timeout:  p.Timeout,
	})
}
