package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"

	"github.com/stacklok/mcpgateway/pkg/adapter"
	"github.com/stacklok/mcpgateway/pkg/audit"
	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
	"github.com/stacklok/mcpgateway/pkg/httpexec"
	"github.com/stacklok/mcpgateway/pkg/metrics"
	"github.com/stacklok/mcpgateway/pkg/registry"
	"github.com/stacklok/mcpgateway/pkg/sshexec"
)

// ServerInfo identifies this gateway in the initialize handshake.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Dispatcher routes JSON-RPC envelopes to the core method table. A
// single Dispatcher instance is shared by every transport (stdio, SSE,
// streamable-HTTP) so routing and error handling never diverge between
// them.
type Dispatcher struct {
	registry *registry.Handle
	adapter  *adapter.Adapter
	http     *httpexec.Executor
	ssh      *sshexec.Executor
	server   ServerInfo
	metrics  *metrics.Recorder
	auditor  *audit.Auditor
}

// New builds a Dispatcher bound to the given registry handle and tool
// executors.
func New(reg *registry.Handle, a *adapter.Adapter, httpExec *httpexec.Executor, sshExec *sshexec.Executor, server ServerInfo) *Dispatcher {
	return &Dispatcher{registry: reg, adapter: a, http: httpExec, ssh: sshExec, server: server}
}

// SetMetrics attaches a Recorder that handleToolsCall will report every
// dispatch to. Metrics are off (nil) unless the caller opts in, so
// tests and lightweight embeddings of Dispatcher never pay for it.
func (d *Dispatcher) SetMetrics(m *metrics.Recorder) {
	d.metrics = m
}

// SetAuditor attaches an Auditor that every dispatched call will be
// reported to. Auditing is off (nil) unless the caller opts in.
func (d *Dispatcher) SetAuditor(a *audit.Auditor) {
	d.auditor = a
}

// Dispatch processes a single raw JSON-RPC payload, which may be one
// envelope or a batch array, and returns the raw response payload to
// write back (nil if the payload was entirely notifications).
func (d *Dispatcher) Dispatch(ctx context.Context, raw []byte) []byte {
	trimmed := gjson.ParseBytes(raw)
	if trimmed.IsArray() {
		return d.dispatchBatch(ctx, raw)
	}
	return d.dispatchSingle(ctx, raw)
}

func (d *Dispatcher) dispatchBatch(ctx context.Context, raw []byte) []byte {
	var envelopes []json.RawMessage
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return marshalResponse(newError(nil, CodeParseError, "invalid batch envelope", nil))
	}
	if len(envelopes) == 0 {
		return marshalResponse(newError(nil, CodeInvalidRequest, "empty batch", nil))
	}

	var responses []*Response
	for _, env := range envelopes {
		if resp := d.handleOne(ctx, env); resp != nil {
			responses = append(responses, resp)
		}
	}
	if len(responses) == 0 {
		return nil
	}
	out, _ := json.Marshal(responses)
	return out
}

func (d *Dispatcher) dispatchSingle(ctx context.Context, raw []byte) []byte {
	resp := d.handleOne(ctx, raw)
	if resp == nil {
		return nil
	}
	return marshalResponse(resp)
}

func marshalResponse(resp *Response) []byte {
	out, err := json.Marshal(resp)
	if err != nil {
		return []byte(`{"jsonrpc":"2.0","error":{"code":-32603,"message":"failed to marshal response"}}`)
	}
	return out
}

// handleOne processes one envelope and returns its Response, or nil if
// the envelope was a notification (no response is ever sent) or a bare
// response envelope (ignored — this gateway never sends requests of
// its own to the client on this channel).
func (d *Dispatcher) handleOne(ctx context.Context, raw json.RawMessage) *Response {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return newError(nil, CodeParseError, "malformed JSON-RPC envelope", nil)
	}
	if req.Method == "" {
		// no method => a response envelope (result/error), not ours to answer
		return nil
	}
	if req.JSONRPC != "2.0" {
		return newError(req.ID, CodeInvalidRequest, "jsonrpc version must be \"2.0\"", nil)
	}

	callCtx := newCorrelatedContext(ctx)
	start := time.Now()
	result, callErr := d.route(callCtx, req)
	d.audit(callCtx, req, result, callErr, time.Since(start))

	if req.IsNotification() {
		return nil
	}
	if callErr != nil {
		return errorResponse(req.ID, callErr)
	}
	return newResult(req.ID, result)
}

// audit reports one dispatched call to the configured Auditor, if any.
// Disabled (nil) auditing is the common case and costs nothing beyond
// this check.
func (d *Dispatcher) audit(ctx context.Context, req Request, result any, callErr error, elapsed time.Duration) {
	if d.auditor == nil {
		return
	}
	outcome := audit.OutcomeSuccess
	if callErr != nil {
		outcome = audit.OutcomeError
	}
	correlationID, _ := CorrelationIDFromContext(ctx)
	rec := audit.CallRecord{
		CorrelationID: correlationID,
		Method:        req.Method,
		Outcome:       outcome,
		Duration:      elapsed,
	}
	if req.Method == "tools/call" {
		rec.ToolName = gjson.GetBytes(req.Params, "name").String()
	}
	rec.RequestData = req.Params
	rec.ResponseData = result
	d.auditor.RecordCall(ctx, rec)
}

func errorResponse(id json.RawMessage, err error) *Response {
	var ge *gwerrors.Error
	if asErr, ok := err.(*gwerrors.Error); ok {
		ge = asErr
	}
	if ge == nil {
		return newError(id, CodeInternalError, err.Error(), nil)
	}
	return newError(id, ge.JSONRPCCode(), ge.Message, map[string]any{
		"kind":          ge.Kind,
		"code":          ge.Code,
		"category":      ge.Category,
		"severity":      ge.Severity,
		"correlationId": ge.CorrelationID,
		"suggestions":   ge.Suggestions,
		"recoverable":   ge.Recoverable,
	})
}

func (d *Dispatcher) route(ctx context.Context, req Request) (any, error) {
	switch req.Method {
	case "initialize":
		return d.handleInitialize(req)
	case "tools/list":
		return d.handleToolsList()
	case "tools/call":
		return d.handleToolsCall(ctx, req)
	default:
		return nil, gwerrors.NewProtocolUnsupportedMethodError(
			fmt.Sprintf("unknown method %q", req.Method), nil)
	}
}

func (d *Dispatcher) handleInitialize(req Request) (any, error) {
	return map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools": map[string]any{},
		},
		"serverInfo": d.server,
	}, nil
}

func (d *Dispatcher) handleToolsList() (any, error) {
	return map[string]any{"tools": tools}, nil
}

type toolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

func (d *Dispatcher) handleToolsCall(ctx context.Context, req Request) (any, error) {
	var p toolCallParams
	if err := json.Unmarshal(req.Params, &p); err != nil {
		return nil, gwerrors.NewProtocolInvalidMessageError("tools/call: malformed params", err)
	}

	tool, ok := findTool(p.Name)
	if !ok {
		return nil, gwerrors.NewProtocolUnsupportedMethodError(
			fmt.Sprintf("unknown tool %q", p.Name), nil)
	}

	args := normalizeAliases(p.Name, p.Arguments)
	if err := validateAgainstSchema(tool, args); err != nil {
		return nil, gwerrors.NewExecutionInvalidParametersError(
			fmt.Sprintf("tools/call %s: argument validation failed", p.Name), err)
	}

	start := time.Now()
	result, err := d.callTool(ctx, p.Name, args)
	if d.metrics != nil {
		d.metrics.RecordToolCall(p.Name, err, time.Since(start))
	}
	return result, err
}

func (d *Dispatcher) callTool(ctx context.Context, name string, args json.RawMessage) (any, error) {
	switch name {
	case "http_request":
		return d.callHTTPRequest(ctx, args)
	case "http_request_resource":
		return d.callHTTPRequestResource(ctx, args)
	case "ssh_exec":
		return d.callSSHExec(ctx, args)
	case "ssh_exec_resource":
		return d.callSSHExecResource(ctx, args)
	case "list_resources":
		return d.callListResources(args)
	default:
		return nil, gwerrors.NewProtocolUnsupportedMethodError(
			fmt.Sprintf("unknown tool %q", name), nil)
	}
}

// normalizeAliases rewrites tool-specific parameter aliases before
// schema validation, e.g. ssh_exec accepting "commands" as an alias
// for "command".
func normalizeAliases(toolName string, raw json.RawMessage) json.RawMessage {
	if toolName != "ssh_exec" && toolName != "ssh_exec_resource" {
		return raw
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return raw
	}
	if _, hasCommand := m["command"]; hasCommand {
		return raw
	}
	if alias, ok := m["commands"]; ok {
		m["command"] = alias
		delete(m, "commands")
		out, err := json.Marshal(m)
		if err != nil {
			return raw
		}
		return out
	}
	return raw
}

func validateAgainstSchema(tool Tool, args json.RawMessage) error {
	if len(args) == 0 {
		args = []byte(`{}`)
	}
	schemaLoader := gojsonschema.NewGoLoader(tool.InputSchema)
	docLoader := gojsonschema.NewBytesLoader(args)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}
	if !result.Valid() {
		msg := ""
		for i, e := range result.Errors() {
			if i > 0 {
				msg += "; "
			}
			msg += e.String()
		}
		return fmt.Errorf("%s", msg)
	}
	return nil
}

func newCorrelatedContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, uuid.NewString())
}

type correlationIDKey struct{}

// CorrelationIDFromContext returns the per-call correlation id stamped
// by the dispatcher, for transports and audit logging to attach to
// their own records of the same call.
func CorrelationIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(correlationIDKey{}).(string)
	return id, ok
}

func durationFromSeconds(v float64) time.Duration {
	if v <= 0 {
		return 0
	}
	return time.Duration(v * float64(time.Second))
}
