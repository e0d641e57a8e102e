package audit

import "context"

// BackendInfo identifies which configured resource a dispatched tool
// call actually reached, so audit logging can record the real target
// even when the JSON-RPC params only name the tool.
type BackendInfo struct {
	BackendName string
}

type backendInfoKey struct{}

// WithBackendInfo returns a context carrying info, retrievable later
// via BackendInfoFromContext. info is stored by pointer, so a handler
// further down the call chain can mutate it in place.
func WithBackendInfo(ctx context.Context, info *BackendInfo) context.Context {
	return context.WithValue(ctx, backendInfoKey{}, info)
}

// BackendInfoFromContext retrieves the BackendInfo stashed by
// WithBackendInfo, if any.
func BackendInfoFromContext(ctx context.Context) (*BackendInfo, bool) {
	info, ok := ctx.Value(backendInfoKey{}).(*BackendInfo)
	return info, ok
}
