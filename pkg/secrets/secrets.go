// Package secrets resolves CredentialReference strings against the
// process environment or the filesystem. Resolution happens on every
// use; nothing is cached, so rotated secrets take effect immediately
// and resources never hold resolved credential material at rest.
package secrets

import (
	"fmt"
	"os"
	"strings"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
)

const (
	envScheme  = "env://"
	fileScheme = "file://"
)

// Resolver resolves credential references. The zero value is ready to
// use; it has no state because resolution reads the environment or
// filesystem fresh on every call.
type Resolver struct{}

// NewResolver returns a ready-to-use credential resolver.
func NewResolver() *Resolver { return &Resolver{} }

// Resolve resolves a credential reference of the form env://NAME or
// file://PATH. Any other scheme, or an unset/unreadable target, fails
// resolution with a connection-category authentication error.
func (*Resolver) Resolve(ref string) (string, error) {
	switch {
	case strings.HasPrefix(ref, envScheme):
		name := strings.TrimPrefix(ref, envScheme)
		if name == "" {
			return "", gwerrors.NewAuthenticationFailedError("credential reference env:// missing variable name", nil)
		}
		value, ok := os.LookupEnv(name)
		if !ok {
			return "", gwerrors.NewAuthenticationFailedError(
				fmt.Sprintf("environment variable %q referenced by credential is not set", name), nil)
		}
		return value, nil

	case strings.HasPrefix(ref, fileScheme):
		path := strings.TrimPrefix(ref, fileScheme)
		if path == "" {
			return "", gwerrors.NewAuthenticationFailedError("credential reference file:// missing path", nil)
		}
		contents, err := os.ReadFile(path) //nolint:gosec // path is operator-configured, not caller-supplied
		if err != nil {
			return "", gwerrors.NewAuthenticationFailedError(
				fmt.Sprintf("reading credential file %q", path), err)
		}
		return strings.TrimSpace(string(contents)), nil

	default:
		return "", gwerrors.NewAuthenticationFailedError(
			fmt.Sprintf("unsupported credential reference scheme in %q", ref), nil)
	}
}

// IsReference reports whether s looks like a credential reference this
// resolver understands, without attempting resolution.
func IsReference(s string) bool {
	return strings.HasPrefix(s, envScheme) || strings.HasPrefix(s, fileScheme)
}
