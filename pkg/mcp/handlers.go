package mcp

import (
	"context"
	"encoding/json"

	"github.com/stacklok/mcpgateway/pkg/adapter"
	"github.com/stacklok/mcpgateway/pkg/httpexec"
	"github.com/stacklok/mcpgateway/pkg/registry"
	"github.com/stacklok/mcpgateway/pkg/resource"
	"github.com/stacklok/mcpgateway/pkg/sshexec"
)

type httpRequestArgs struct {
	Method  string            `json:"method"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
	Timeout float64           `json:"timeout"`
}

func (d *Dispatcher) callHTTPRequest(ctx context.Context, raw json.RawMessage) (any, error) {
	var a httpRequestArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	resp, err := d.http.Execute(ctx, httpexec.Request{
		Method:  a.Method,
		URL:     a.URL,
		Headers: a.Headers,
		Body:    a.Body,
		Timeout: durationFromSeconds(a.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type httpRequestResourceArgs struct {
	Method   string            `json:"method"`
	Resource string            `json:"resource"`
	Path     string            `json:"path"`
	Headers  map[string]string `json:"headers"`
	Body     string            `json:"body"`
	Timeout  float64           `json:"timeout"`
}

func (d *Dispatcher) callHTTPRequestResource(ctx context.Context, raw json.RawMessage) (any, error) {
	var a httpRequestResourceArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	resp, err := d.adapter.HTTPRequestResource(ctx, adapter.HTTPRequestResourceParams{
		Method:   a.Method,
		Resource: a.Resource,
		Path:     a.Path,
		Headers:  a.Headers,
		Body:     a.Body,
		Timeout:  durationFromSeconds(a.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

type sshExecArgs struct {
	Host     string  `json:"host"`
	Port     int     `json:"port"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Command  string  `json:"command"`
	Timeout  float64 `json:"timeout"`
}

func (d *Dispatcher) callSSHExec(ctx context.Context, raw json.RawMessage) (any, error) {
	var a sshExecArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	result, err := d.ssh.Execute(ctx, sshexec.Request{
		Host:     a.Host,
		Port:     a.Port,
		Username: a.Username,
		Password: a.Password,
		Command:  a.Command,
		Timeout:  durationFromSeconds(a.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type sshExecResourceArgs struct {
	Resource string  `json:"resource"`
	Command  string  `json:"command"`
	Timeout  float64 `json:"timeout"`
}

func (d *Dispatcher) callSSHExecResource(ctx context.Context, raw json.RawMessage) (any, error) {
	var a sshExecResourceArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	result, err := d.adapter.SSHExecResource(ctx, adapter.SSHExecResourceParams{
		Resource: a.Resource,
		Command:  a.Command,
		Timeout:  durationFromSeconds(a.Timeout),
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type listResourcesArgs struct {
	Filter struct {
		Type         string            `json:"type"`
		LoaderType   string            `json:"loaderType"`
		Capabilities []string          `json:"capabilities"`
		Labels       map[string]string `json:"labels"`
	} `json:"filter"`
	Pagination struct {
		Limit  int `json:"limit"`
		Offset int `json:"offset"`
	} `json:"pagination"`
}

func (d *Dispatcher) callListResources(raw json.RawMessage) (any, error) {
	var a listResourcesArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
	}

	filter := registry.Filter{
		Type:         resource.Type(a.Filter.Type),
		LoaderType:   resource.LoaderType(a.Filter.LoaderType),
		Capabilities: a.Filter.Capabilities,
		Labels:       a.Filter.Labels,
	}
	pagination := registry.Pagination{Limit: a.Pagination.Limit, Offset: a.Pagination.Offset}

	result := d.registry.Load().List(filter, pagination)
	return result, nil
}
