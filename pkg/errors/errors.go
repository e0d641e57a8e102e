// Package errors implements the gateway's typed, six-category error
// taxonomy: configuration, connection, resource, protocol, system, and
// execution errors. Every error carries a numeric code in its
// category's range, a severity, a correlation id, and optional
// operator-facing suggestions.
package errors

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category discriminates the six top-level error families from the
// error handling design. The numeric Code of every Error falls inside
// the range owned by its Category.
type Category string

// Error categories and their code ranges.
const (
	CategoryConfiguration Category = "configuration" // 1000-1999
	CategoryConnection    Category = "connection"    // 2000-2999
	CategoryResource      Category = "resource"      // 3000-3999
	CategoryProtocol      Category = "protocol"      // 4000-4999
	CategorySystem        Category = "system"        // 5000-5999
	CategoryExecution     Category = "execution"     // 6000-6999
)

// Severity classifies how urgently an error should be surfaced.
type Severity string

// Severity levels, lowest to highest.
const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Kind identifies a specific error condition within a Category. Kinds
// are stable strings safe to compare and to surface in JSON output.
type Kind string

// Configuration error kinds (1000s).
const (
	KindConfigNotFound        Kind = "config_not_found"
	KindConfigParseFailed     Kind = "config_parse_failed"
	KindConfigValidationFailed Kind = "config_validation_failed"
	KindConfigCircularRef     Kind = "config_circular_reference"
)

// Connection error kinds (2000s).
const (
	KindConnectionFailed    Kind = "connection_failed"
	KindConnectionTimeout   Kind = "connection_timeout"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindTLSError            Kind = "tls_error"
	KindPoolExhausted       Kind = "pool_exhausted"
)

// Resource error kinds (3000s).
const (
	KindResourceNotFound     Kind = "resource_not_found"
	KindResourceInvalid      Kind = "resource_invalid_definition"
	KindResourceLoadFailed   Kind = "resource_load_failed"
	KindResourceAccessDenied Kind = "resource_access_denied"
	KindResourceDisabled     Kind = "resource_disabled"
)

// Protocol error kinds (4000s).
const (
	KindProtocolInvalidMessage   Kind = "protocol_invalid_message"
	KindProtocolUnsupportedMethod Kind = "protocol_unsupported_method"
	KindProtocolVersionMismatch  Kind = "protocol_version_mismatch"
)

// System error kinds (5000s).
const (
	KindSystemInternal              Kind = "system_internal"
	KindSystemShutdown               Kind = "system_shutdown"
	KindSystemDependencyUnavailable Kind = "system_dependency_unavailable"
)

// Execution error kinds (6000s).
const (
	KindExecutionFailed            Kind = "execution_failed"
	KindExecutionTimeout           Kind = "execution_timeout"
	KindExecutionPermissionDenied  Kind = "execution_permission_denied"
	KindExecutionInvalidParameters Kind = "execution_invalid_parameters"
	KindExecutionSecurityViolation Kind = "execution_security_violation"
)

var kindCodes = map[Kind]int{
	KindConfigNotFound:         1001,
	KindConfigParseFailed:      1002,
	KindConfigValidationFailed: 1003,
	KindConfigCircularRef:      1004,

	KindConnectionFailed:     2001,
	KindConnectionTimeout:    2002,
	KindAuthenticationFailed: 2003,
	KindTLSError:             2004,
	KindPoolExhausted:        2005,

	KindResourceNotFound:     3001,
	KindResourceInvalid:      3002,
	KindResourceLoadFailed:   3003,
	KindResourceAccessDenied: 3004,
	KindResourceDisabled:     3005,

	KindProtocolInvalidMessage:    4001,
	KindProtocolUnsupportedMethod: 4002,
	KindProtocolVersionMismatch:   4003,

	KindSystemInternal:             5001,
	KindSystemShutdown:             5002,
	KindSystemDependencyUnavailable: 5003,

	KindExecutionFailed:            6001,
	KindExecutionTimeout:           6002,
	KindExecutionPermissionDenied:  6003,
	KindExecutionInvalidParameters: 6004,
	KindExecutionSecurityViolation: 6005,
}

var kindCategories = map[Kind]Category{
	KindConfigNotFound:         CategoryConfiguration,
	KindConfigParseFailed:      CategoryConfiguration,
	KindConfigValidationFailed: CategoryConfiguration,
	KindConfigCircularRef:      CategoryConfiguration,

	KindConnectionFailed:     CategoryConnection,
	KindConnectionTimeout:    CategoryConnection,
	KindAuthenticationFailed: CategoryConnection,
	KindTLSError:             CategoryConnection,
	KindPoolExhausted:        CategoryConnection,

	KindResourceNotFound:     CategoryResource,
	KindResourceInvalid:      CategoryResource,
	KindResourceLoadFailed:   CategoryResource,
	KindResourceAccessDenied: CategoryResource,
	KindResourceDisabled:     CategoryResource,

	KindProtocolInvalidMessage:    CategoryProtocol,
	KindProtocolUnsupportedMethod: CategoryProtocol,
	KindProtocolVersionMismatch:   CategoryProtocol,

	KindSystemInternal:              CategorySystem,
	KindSystemShutdown:              CategorySystem,
	KindSystemDependencyUnavailable: CategorySystem,

	KindExecutionFailed:            CategoryExecution,
	KindExecutionTimeout:           CategoryExecution,
	KindExecutionPermissionDenied:  CategoryExecution,
	KindExecutionInvalidParameters: CategoryExecution,
	KindExecutionSecurityViolation: CategoryExecution,
}

// Error is the gateway's structured error type. It implements the
// standard error interface plus Unwrap, so errors.Is/As work with
// wrapped causes.
type Error struct {
	Kind          Kind
	Code          int
	Message       string
	Category      Category
	Severity      Severity
	Timestamp     time.Time
	CorrelationID string
	Context       map[string]any
	Suggestions   []string
	Recoverable   bool
	Cause         error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches structured context and returns the error for
// chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithSuggestions sets up to three operator-facing suggestions.
func (e *Error) WithSuggestions(suggestions ...string) *Error {
	if len(suggestions) > 3 {
		suggestions = suggestions[:3]
	}
	e.Suggestions = suggestions
	return e
}

// New builds an Error of the given kind with the default severity and
// recoverability for that kind, stamping a fresh correlation id and
// timestamp.
func New(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:          kind,
		Code:          kindCodes[kind],
		Message:       message,
		Category:      kindCategories[kind],
		Severity:      defaultSeverity(kind),
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
		Recoverable:   defaultRecoverable(kind),
		Cause:         cause,
	}
}

func defaultSeverity(kind Kind) Severity {
	switch kind {
	case KindSystemInternal, KindSystemDependencyUnavailable, KindExecutionSecurityViolation:
		return SeverityCritical
	case KindConfigValidationFailed, KindResourceAccessDenied, KindExecutionPermissionDenied, KindAuthenticationFailed:
		return SeverityWarning
	default:
		return SeverityError
	}
}

func defaultRecoverable(kind Kind) bool {
	switch kind {
	case KindConfigParseFailed, KindConfigValidationFailed, KindConfigNotFound, KindConfigCircularRef:
		return true
	case KindConnectionFailed, KindConnectionTimeout, KindPoolExhausted:
		return true
	default:
		return false
	}
}

// Configuration error constructors (1000s).

// NewConfigNotFoundError reports that no config candidate resolved.
func NewConfigNotFoundError(message string, cause error) *Error {
	return New(KindConfigNotFound, message, cause)
}

// NewConfigParseError reports a parse failure for a config source.
func NewConfigParseError(message string, cause error) *Error {
	return New(KindConfigParseFailed, message, cause)
}

// NewConfigValidationError reports a structurally invalid config tree.
func NewConfigValidationError(message string, cause error) *Error {
	return New(KindConfigValidationFailed, message, cause)
}

// NewConfigCircularReferenceError reports a circular config reference.
func NewConfigCircularReferenceError(message string, cause error) *Error {
	return New(KindConfigCircularRef, message, cause)
}

// Connection error constructors (2000s).

// NewConnectionFailedError reports a failed backend connection attempt.
func NewConnectionFailedError(message string, cause error) *Error {
	return New(KindConnectionFailed, message, cause)
}

// NewConnectionTimeoutError reports a connection-establishment timeout.
func NewConnectionTimeoutError(message string, cause error) *Error {
	return New(KindConnectionTimeout, message, cause)
}

// NewAuthenticationFailedError reports a backend authentication failure.
func NewAuthenticationFailedError(message string, cause error) *Error {
	return New(KindAuthenticationFailed, message, cause)
}

// NewTLSError reports a TLS handshake/verification failure.
func NewTLSError(message string, cause error) *Error {
	return New(KindTLSError, message, cause)
}

// NewPoolExhaustedError reports that a connection pool has no capacity.
func NewPoolExhaustedError(message string, cause error) *Error {
	return New(KindPoolExhausted, message, cause)
}

// Resource error constructors (3000s).

// NewResourceNotFoundError reports a missing registry entry.
func NewResourceNotFoundError(message string, cause error) *Error {
	return New(KindResourceNotFound, message, cause)
}

// NewResourceInvalidError reports an invalid resource definition.
func NewResourceInvalidError(message string, cause error) *Error {
	return New(KindResourceInvalid, message, cause)
}

// NewResourceLoadFailedError reports a loader failure.
func NewResourceLoadFailedError(message string, cause error) *Error {
	return New(KindResourceLoadFailed, message, cause)
}

// NewResourceAccessDeniedError reports a capability check failure.
func NewResourceAccessDeniedError(message string, cause error) *Error {
	return New(KindResourceAccessDenied, message, cause)
}

// NewResourceDisabledError reports a call against a disabled resource.
func NewResourceDisabledError(message string, cause error) *Error {
	return New(KindResourceDisabled, message, cause)
}

// Protocol error constructors (4000s).

// NewProtocolInvalidMessageError reports a malformed JSON-RPC envelope.
func NewProtocolInvalidMessageError(message string, cause error) *Error {
	return New(KindProtocolInvalidMessage, message, cause)
}

// NewProtocolUnsupportedMethodError reports an unrouted JSON-RPC method.
func NewProtocolUnsupportedMethodError(message string, cause error) *Error {
	return New(KindProtocolUnsupportedMethod, message, cause)
}

// NewProtocolVersionMismatchError reports an incompatible protocol version.
func NewProtocolVersionMismatchError(message string, cause error) *Error {
	return New(KindProtocolVersionMismatch, message, cause)
}

// System error constructors (5000s).

// NewSystemInternalError reports an unexpected internal failure.
func NewSystemInternalError(message string, cause error) *Error {
	return New(KindSystemInternal, message, cause)
}

// NewSystemShutdownError reports activity rejected during shutdown.
func NewSystemShutdownError(message string, cause error) *Error {
	return New(KindSystemShutdown, message, cause)
}

// NewSystemDependencyUnavailableError reports a missing required dependency.
func NewSystemDependencyUnavailableError(message string, cause error) *Error {
	return New(KindSystemDependencyUnavailable, message, cause)
}

// Execution error constructors (6000s).

// NewExecutionFailedError reports a generic backend execution failure.
func NewExecutionFailedError(message string, cause error) *Error {
	return New(KindExecutionFailed, message, cause)
}

// NewExecutionTimeoutError reports an execution that exceeded its timeout.
func NewExecutionTimeoutError(message string, cause error) *Error {
	return New(KindExecutionTimeout, message, cause)
}

// NewExecutionPermissionDeniedError reports a capability/command-blocklist denial.
func NewExecutionPermissionDeniedError(message string, cause error) *Error {
	return New(KindExecutionPermissionDenied, message, cause)
}

// NewExecutionInvalidParametersError reports malformed tool-call arguments.
func NewExecutionInvalidParametersError(message string, cause error) *Error {
	return New(KindExecutionInvalidParameters, message, cause)
}

// NewExecutionSecurityViolationError reports a rejected-by-policy execution.
func NewExecutionSecurityViolationError(message string, cause error) *Error {
	return New(KindExecutionSecurityViolation, message, cause)
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	var ge *Error
	if ok := asError(err, &ge); !ok {
		return false
	}
	return ge.Kind == kind
}

func asError(err error, target **Error) bool {
	for err != nil {
		if ge, ok := err.(*Error); ok {
			*target = ge
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

// IsConfigNotFound reports whether err is a config-not-found error.
func IsConfigNotFound(err error) bool { return Is(err, KindConfigNotFound) }

// IsConfigParseFailed reports whether err is a config parse error.
func IsConfigParseFailed(err error) bool { return Is(err, KindConfigParseFailed) }

// IsConfigValidationFailed reports whether err is a config validation error.
func IsConfigValidationFailed(err error) bool { return Is(err, KindConfigValidationFailed) }

// IsConnectionFailed reports whether err is a connection-failed error.
func IsConnectionFailed(err error) bool { return Is(err, KindConnectionFailed) }

// IsConnectionTimeout reports whether err is a connection-timeout error.
func IsConnectionTimeout(err error) bool { return Is(err, KindConnectionTimeout) }

// IsAuthenticationFailed reports whether err is an authentication-failed error.
func IsAuthenticationFailed(err error) bool { return Is(err, KindAuthenticationFailed) }

// IsResourceNotFound reports whether err is a resource-not-found error.
func IsResourceNotFound(err error) bool { return Is(err, KindResourceNotFound) }

// IsResourceAccessDenied reports whether err is a resource-access-denied error.
func IsResourceAccessDenied(err error) bool { return Is(err, KindResourceAccessDenied) }

// IsResourceDisabled reports whether err is a resource-disabled error.
func IsResourceDisabled(err error) bool { return Is(err, KindResourceDisabled) }

// IsProtocolUnsupportedMethod reports whether err is an unsupported-method error.
func IsProtocolUnsupportedMethod(err error) bool { return Is(err, KindProtocolUnsupportedMethod) }

// IsExecutionTimeout reports whether err is an execution-timeout error.
func IsExecutionTimeout(err error) bool { return Is(err, KindExecutionTimeout) }

// IsExecutionPermissionDenied reports whether err is an execution-permission-denied error.
func IsExecutionPermissionDenied(err error) bool { return Is(err, KindExecutionPermissionDenied) }

// IsExecutionSecurityViolation reports whether err is an execution-security-violation error.
func IsExecutionSecurityViolation(err error) bool { return Is(err, KindExecutionSecurityViolation) }

// IsSystemInternal reports whether err is an internal system error.
func IsSystemInternal(err error) bool { return Is(err, KindSystemInternal) }

// JSONRPCCode maps an Error's category to the JSON-RPC error code the
// dispatcher should emit when it cannot route or execute a request.
func (e *Error) JSONRPCCode() int {
	switch e.Category {
	case CategoryProtocol:
		if e.Kind == KindProtocolUnsupportedMethod {
			return -32601
		}
		if e.Kind == KindProtocolInvalidMessage {
			return -32600
		}
		return -32603
	default:
		return -32603
	}
}
