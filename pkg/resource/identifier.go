package resource

import (
	"fmt"
	"regexp"
	"strings"

	gwerrors "github.com/stacklok/mcpgateway/pkg/errors"
)

// identifierPattern is the canonical grammar from the external
// interfaces section: <resourceType>://<loaderType>/<loaderId>/<resourceId>.
var identifierPattern = regexp.MustCompile(`^([A-Za-z0-9_-]+)://(local|remote)/([A-Za-z0-9_-]+)/([A-Za-z0-9_.-]+)$`)

// Identifier is the parsed form of a canonical resource URI.
type Identifier struct {
	ResourceType string
	LoaderType   LoaderType
	LoaderID     string
	ResourceID   string
}

// ParseIdentifier parses a canonical resource URI. Parsing is total:
// any string not matching the grammar is rejected with a resource
// error, never a panic.
func ParseIdentifier(s string) (Identifier, error) {
	m := identifierPattern.FindStringSubmatch(s)
	if m == nil {
		return Identifier{}, gwerrors.NewResourceInvalidError(
			fmt.Sprintf("malformed resource identifier %q", s), nil)
	}
	return Identifier{
		ResourceType: m[1],
		LoaderType:   LoaderType(m[2]),
		LoaderID:     m[3],
		ResourceID:   m[4],
	}, nil
}

// Format renders the identifier back to its canonical string form.
// Format(Parse(s)) == s for every valid s.
func (i Identifier) Format() string {
	return fmt.Sprintf("%s://%s/%s/%s", i.ResourceType, i.LoaderType, i.LoaderID, i.ResourceID)
}

// String implements fmt.Stringer.
func (i Identifier) String() string { return i.Format() }

// resourceTypeForKind maps a Resource Type to the scheme used in its
// canonical identifier. The scheme names the backend kind a caller
// targets, not the Go type name.
func resourceTypeForKind(t Type) string {
	switch t {
	case TypeSSHHost:
		return "host"
	case TypeHTTPAPI:
		return "api"
	case TypeDatabase:
		return "database"
	case TypeKubernetes:
		return "kubernetes"
	default:
		return strings.ToLower(string(t))
	}
}

// IdentifierFor builds the canonical identifier for a resource given
// its owning loader type and id.
func IdentifierFor(r *Resource) Identifier {
	return Identifier{
		ResourceType: resourceTypeForKind(r.Type),
		LoaderType:   r.LoaderType,
		LoaderID:     r.LoaderID,
		ResourceID:   r.ID,
	}
}
