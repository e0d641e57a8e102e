package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventSource identifies where a call came from.
type EventSource struct {
	Type  string         `json:"type"`
	Value string         `json:"value"`
	Extra map[string]any `json:"extra,omitempty"`
}

// EventMetadata carries the audit record's own bookkeeping plus
// free-form extras (duration, transport, response size, ...).
type EventMetadata struct {
	AuditID string         `json:"audit_id"`
	Extra   map[string]any `json:"extra,omitempty"`
}

// AuditEvent is one structured audit log entry.
type AuditEvent struct {
	Type      string            `json:"type"`
	LoggedAt  time.Time         `json:"logged_at"`
	Outcome   string            `json:"outcome"`
	Source    EventSource       `json:"source"`
	Subjects  map[string]string `json:"subjects"`
	Component string            `json:"component"`
	Target    map[string]string `json:"target,omitempty"`
	Metadata  EventMetadata     `json:"metadata"`
	Data      *json.RawMessage  `json:"data,omitempty"`
}

// NewAuditEvent builds an AuditEvent stamped with a fresh audit id and
// the current time.
func NewAuditEvent(eventType string, source EventSource, outcome string, subjects map[string]string, component string) *AuditEvent {
	return NewAuditEventWithID(uuid.NewString(), eventType, source, outcome, subjects, component)
}

// NewAuditEventWithID builds an AuditEvent using a caller-supplied
// audit id, for callers that already have a correlation id to reuse.
func NewAuditEventWithID(auditID, eventType string, source EventSource, outcome string, subjects map[string]string, component string) *AuditEvent {
	return &AuditEvent{
		Type:      eventType,
		LoggedAt:  time.Now().UTC(),
		Outcome:   outcome,
		Source:    source,
		Subjects:  subjects,
		Component: component,
		Metadata:  EventMetadata{AuditID: auditID},
	}
}

// WithTarget attaches target information and returns the same event
// for chaining.
func (e *AuditEvent) WithTarget(target map[string]string) *AuditEvent {
	e.Target = target
	return e
}

// WithData attaches raw JSON payload data and returns the same event
// for chaining.
func (e *AuditEvent) WithData(data *json.RawMessage) *AuditEvent {
	e.Data = data
	return e
}

// WithDataFromString parses jsonString as JSON and attaches it,
// silently leaving Data unset if it doesn't parse.
func (e *AuditEvent) WithDataFromString(jsonString string) *AuditEvent {
	raw := json.RawMessage(jsonString)
	if !json.Valid(raw) {
		return e
	}
	return e.WithData(&raw)
}
