package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "error with cause",
			err: &Error{
				Kind:    KindExecutionInvalidParameters,
				Message: "test message",
				Cause:   errors.New("underlying error"),
			},
			want: "execution_invalid_parameters: test message: underlying error",
		},
		{
			name: "error without cause",
			err: &Error{
				Kind:    KindSystemInternal,
				Message: "test message",
				Cause:   nil,
			},
			want: "system_internal: test message",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := &Error{Kind: KindSystemInternal, Message: "test message", Cause: cause}
	assert.Equal(t, cause, err.Unwrap())

	errNoCause := &Error{Kind: KindSystemInternal, Message: "test message"}
	assert.Nil(t, errNoCause.Unwrap())
}

func TestNew(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := New(KindExecutionInvalidParameters, "test message", cause)

	assert.Equal(t, KindExecutionInvalidParameters, err.Kind)
	assert.Equal(t, "test message", err.Message)
	assert.Equal(t, cause, err.Cause)
	assert.Equal(t, CategoryExecution, err.Category)
	assert.Equal(t, 6004, err.Code)
	require.NotEmpty(t, err.CorrelationID)
	assert.False(t, err.Timestamp.IsZero())
}

func TestConstructorsAssignCategoryAndCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		constructor func(string, error) *Error
		wantKind    Kind
		wantCode    int
		wantCat     Category
	}{
		{"NewConfigNotFoundError", NewConfigNotFoundError, KindConfigNotFound, 1001, CategoryConfiguration},
		{"NewConfigParseError", NewConfigParseError, KindConfigParseFailed, 1002, CategoryConfiguration},
		{"NewConnectionFailedError", NewConnectionFailedError, KindConnectionFailed, 2001, CategoryConnection},
		{"NewConnectionTimeoutError", NewConnectionTimeoutError, KindConnectionTimeout, 2002, CategoryConnection},
		{"NewResourceNotFoundError", NewResourceNotFoundError, KindResourceNotFound, 3001, CategoryResource},
		{"NewResourceAccessDeniedError", NewResourceAccessDeniedError, KindResourceAccessDenied, 3004, CategoryResource},
		{"NewProtocolUnsupportedMethodError", NewProtocolUnsupportedMethodError, KindProtocolUnsupportedMethod, 4002, CategoryProtocol},
		{"NewSystemInternalError", NewSystemInternalError, KindSystemInternal, 5001, CategorySystem},
		{"NewExecutionTimeoutError", NewExecutionTimeoutError, KindExecutionTimeout, 6002, CategoryExecution},
		{"NewExecutionPermissionDeniedError", NewExecutionPermissionDeniedError, KindExecutionPermissionDenied, 6003, CategoryExecution},
	}

	cause := errors.New("cause")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.constructor("test message", cause)
			assert.Equal(t, tt.wantKind, err.Kind)
			assert.Equal(t, tt.wantCode, err.Code)
			assert.Equal(t, tt.wantCat, err.Category)
			assert.Equal(t, "test message", err.Message)
			assert.Equal(t, cause, err.Cause)
		})
	}
}

func TestErrorTypeCheckers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		checker func(error) bool
		want    bool
	}{
		{"IsResourceNotFound matching", NewResourceNotFoundError("x", nil), IsResourceNotFound, true},
		{"IsResourceNotFound non-matching", NewResourceAccessDeniedError("x", nil), IsResourceNotFound, false},
		{"IsResourceNotFound non-Error", errors.New("plain"), IsResourceNotFound, false},
		{"IsExecutionPermissionDenied matching", NewExecutionPermissionDeniedError("x", nil), IsExecutionPermissionDenied, true},
		{"IsExecutionTimeout matching", NewExecutionTimeoutError("x", nil), IsExecutionTimeout, true},
		{"IsSystemInternal nil", nil, IsSystemInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.checker(tt.err))
		})
	}
}

func TestErrorWithContextAndSuggestions(t *testing.T) {
	t.Parallel()

	err := NewExecutionPermissionDeniedError("capability missing", nil).
		WithContext("resource", "ssh-host-01").
		WithSuggestions("grant ssh.exec", "check resource definition", "retry", "ignored fourth")

	assert.Equal(t, "ssh-host-01", err.Context["resource"])
	assert.Len(t, err.Suggestions, 3)
}

func TestJSONRPCCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, -32601, NewProtocolUnsupportedMethodError("x", nil).JSONRPCCode())
	assert.Equal(t, -32600, NewProtocolInvalidMessageError("x", nil).JSONRPCCode())
	assert.Equal(t, -32603, NewSystemInternalError("x", nil).JSONRPCCode())
}
