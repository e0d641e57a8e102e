// Package resource defines the gateway's resource data model: the
// typed backend-endpoint record and its canonical identifier grammar.
package resource

import "time"

// Type discriminates the kind of backend a Resource fronts.
type Type string

// Known and reserved resource types.
const (
	TypeSSHHost    Type = "ssh-host"
	TypeHTTPAPI    Type = "http-api"
	TypeDatabase   Type = "database"   // reserved, not yet implemented
	TypeKubernetes Type = "kubernetes" // reserved, not yet implemented
)

// LoaderType discriminates which loader kind produced a resource.
type LoaderType string

// Supported loader types.
const (
	LoaderTypeLocal  LoaderType = "local"
	LoaderTypeRemote LoaderType = "remote"
)

// Capability tokens recognized by the tool adapters.
const (
	CapabilitySSHExec     = "ssh.exec"
	CapabilityHTTPRequest = "http.request"
)

// Connection holds the type-specific dial information for a resource.
// SSH resources require Host; HTTP resources require BaseURL.
type Connection struct {
	Host            string            `json:"host,omitempty" yaml:"host,omitempty"`
	Port            int               `json:"port,omitempty" yaml:"port,omitempty"`
	Username        string            `json:"username,omitempty" yaml:"username,omitempty"`
	BaseURL         string            `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	DefaultHeaders  map[string]string `json:"defaultHeaders,omitempty" yaml:"defaultHeaders,omitempty"`
}

// Security holds resource-level security hints consulted by the
// executors in addition to the shared security validator (C11).
type Security struct {
	AuthenticationRequired bool     `json:"authenticationRequired,omitempty" yaml:"authenticationRequired,omitempty"`
	EncryptionInTransit    bool     `json:"encryptionInTransit,omitempty" yaml:"encryptionInTransit,omitempty"`
	AllowedCommands        []string `json:"allowedCommands,omitempty" yaml:"allowedCommands,omitempty"`
	RestrictedPaths        []string `json:"restrictedPaths,omitempty" yaml:"restrictedPaths,omitempty"`
}

// Auth holds the credential reference resolved by pkg/secrets at use
// time; the resolved secret value is never stored here.
type Auth struct {
	CredentialRef string `json:"credentialRef,omitempty" yaml:"credentialRef,omitempty"`
}

// Metadata holds bookkeeping not part of the resource's own identity:
// group membership, tags, and the dependency graph edges consulted by
// registry.GetDependencies/GetDependents.
type Metadata struct {
	Group        string   `json:"group,omitempty" yaml:"group,omitempty"`
	Tags         []string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Resource is a logical backend endpoint: an SSH host or an HTTP API,
// with capability gating and credential indirection. Resources are
// produced by a loader, mutated only through the registry, and
// destroyed only on registry replacement.
type Resource struct {
	ID           string            `json:"id" yaml:"id"`
	Name         string            `json:"name" yaml:"name"`
	Type         Type              `json:"type" yaml:"type"`
	Enabled      bool              `json:"enabled" yaml:"enabled"`
	Capabilities []string          `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	Labels       map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Connection   Connection        `json:"connection" yaml:"connection"`
	Security     Security          `json:"security,omitempty" yaml:"security,omitempty"`
	Auth         Auth              `json:"auth,omitempty" yaml:"auth,omitempty"`
	Metadata     Metadata          `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	LoaderType LoaderType `json:"loaderType" yaml:"loaderType"`
	LoaderID   string     `json:"loaderId" yaml:"loaderId"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// HasCapability reports whether the resource's capability set
// contains cap.
func (r *Resource) HasCapability(cap string) bool {
	for _, c := range r.Capabilities {
		if c == cap {
			return true
		}
	}
	return false
}

// Validate enforces the type-dependent mandatory connection fields:
// SSH resources require a host, HTTP resources require a base URL.
func (r *Resource) Validate() error {
	if r.ID == "" {
		return errInvalidResource("id is required")
	}
	switch r.Type {
	case TypeSSHHost:
		if r.Connection.Host == "" {
			return errInvalidResource("ssh-host resource requires connection.host")
		}
	case TypeHTTPAPI:
		if r.Connection.BaseURL == "" {
			return errInvalidResource("http-api resource requires connection.baseUrl")
		}
	case TypeDatabase, TypeKubernetes:
		// reserved types, no connection requirements enforced yet
	default:
		return errInvalidResource("unknown resource type " + string(r.Type))
	}
	return nil
}
