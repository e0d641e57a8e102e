// Package audit provides structured audit logging for the gateway's
// JSON-RPC dispatch loop, independent of which transport carried the
// call in (stdio, SSE, or streamable-HTTP all share one Auditor).
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stacklok/mcpgateway/pkg/logger"
)

// Auditor logs one structured AuditEvent per dispatched JSON-RPC call.
type Auditor struct {
	config    *Config
	transport string
	component string

	mu     sync.Mutex
	writer io.Writer
	closer io.Closer
}

// NewAuditor builds an Auditor writing to config's configured
// destination (stdout by default). transport names the transport this
// Auditor instance is attached to (stdio, sse, http), recorded on every
// event's metadata.
func NewAuditor(config *Config, transport string) (*Auditor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid audit configuration: %w", err)
	}
	w, err := config.GetLogWriter()
	if err != nil {
		return nil, err
	}
	component := config.Component
	if component == "" {
		component = ComponentGateway
	}
	a := &Auditor{config: config, transport: transport, component: component, writer: w}
	if c, ok := w.(io.Closer); ok {
		a.closer = c
	}
	return a, nil
}

// Close releases the Auditor's log destination, if it owns one.
func (a *Auditor) Close() error {
	if a.closer != nil {
		return a.closer.Close()
	}
	return nil
}

// CallRecord describes one completed JSON-RPC dispatch for RecordCall
// to turn into an AuditEvent.
type CallRecord struct {
	CorrelationID string
	Method        string
	ToolName      string
	ResourceID    string
	Outcome       string
	Duration      time.Duration
	Subjects      map[string]string
	RequestData   json.RawMessage
	ResponseData  any
}

// RecordCall logs rec as a structured audit event, honoring the
// Auditor's configured event-type filters and data-capture settings.
func (a *Auditor) RecordCall(ctx context.Context, rec CallRecord) {
	eventType := mapMCPMethodToEventType(rec.Method)
	if !a.config.ShouldAuditEvent(eventType) {
		return
	}

	source := a.extractSource(ctx)
	subjects := rec.Subjects
	if subjects == nil {
		subjects = map[string]string{SubjectKeyUser: "anonymous"}
	}

	auditID := rec.CorrelationID
	if auditID == "" {
		auditID = uuid.NewString()
	}
	event := NewAuditEventWithID(auditID, eventType, source, rec.Outcome, subjects, a.component)

	target := make(map[string]string)
	if rec.ToolName != "" {
		target[TargetKeyName] = rec.ToolName
		target[TargetKeyType] = TargetTypeTool
	}
	if rec.ResourceID != "" {
		target[TargetKeyResourceID] = rec.ResourceID
	}
	target[TargetKeyMethod] = rec.Method
	event.WithTarget(target)

	event.Metadata.Extra = map[string]any{
		MetadataExtraKeyDuration:  rec.Duration.Milliseconds(),
		MetadataExtraKeyTransport: a.transport,
	}

	a.addEventData(event, rec)
	a.logEvent(event)
}

// extractSource builds the event's source from the transport type this
// Auditor was constructed for; this gateway's JSON-RPC layer carries no
// per-call client address once it reaches the dispatcher, so Value
// records the transport instead.
func (a *Auditor) extractSource(_ context.Context) EventSource {
	sourceType := SourceTypeNetwork
	if a.transport == "stdio" {
		sourceType = SourceTypeLocal
	}
	return EventSource{Type: sourceType, Value: a.transport}
}

func (a *Auditor) addEventData(event *AuditEvent, rec CallRecord) {
	if !a.config.IncludeRequestData && !a.config.IncludeResponseData {
		return
	}
	data := make(map[string]any)
	if a.config.IncludeRequestData && len(rec.RequestData) > 0 && len(rec.RequestData) <= a.config.MaxDataSize {
		var reqJSON any
		if err := json.Unmarshal(rec.RequestData, &reqJSON); err == nil {
			data["request"] = reqJSON
		} else {
			data["request"] = string(rec.RequestData)
		}
	}
	if a.config.IncludeResponseData && rec.ResponseData != nil {
		data["response"] = rec.ResponseData
	}
	if len(data) == 0 {
		return
	}
	if raw, err := json.Marshal(data); err == nil {
		rawMsg := json.RawMessage(raw)
		event.WithData(&rawMsg)
	}
}

func (a *Auditor) logEvent(event *AuditEvent) {
	eventJSON, err := json.Marshal(event)
	if err != nil {
		logger.Errorf("audit: failed to marshal event: %v", err)
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, err := a.writer.Write(append(eventJSON, '\n')); err != nil {
		logger.Errorf("audit: failed to write event: %v", err)
	}
}

// mapMCPMethodToEventType maps a JSON-RPC method name to its audit
// event type.
func mapMCPMethodToEventType(method string) string {
	switch method {
	case "initialize":
		return EventTypeMCPInitialize
	case "tools/call":
		return EventTypeMCPToolCall
	case "tools/list":
		return EventTypeMCPToolsList
	case "resources/read":
		return EventTypeMCPResourceRead
	case "resources/list":
		return EventTypeMCPResourcesList
	case "prompts/get":
		return EventTypeMCPPromptGet
	case "prompts/list":
		return EventTypeMCPPromptsList
	case "notifications/message":
		return EventTypeMCPNotification
	case "ping":
		return EventTypeMCPPing
	case "logging/setLevel":
		return EventTypeMCPLogging
	case "completion/complete":
		return EventTypeMCPCompletion
	case "notifications/roots/list_changed":
		return EventTypeMCPRootsListChanged
	default:
		return EventTypeMCPRequest
	}
}
