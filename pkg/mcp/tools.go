package mcp

// Tool describes one entry in the tools/list enumeration: name,
// human description, and a JSON-Schema (draft-07-ish, consumed by
// gojsonschema) for its arguments.
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func schemaObject(required []string, properties map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}

// tools is the fixed set of five tools this dispatcher exposes,
// mirroring the direct-mode/resource-mode pairing for HTTP and SSH
// plus the registry listing tool.
var tools = []Tool{
	{
		Name:        "http_request",
		Description: "Issue a direct HTTP request to an arbitrary URL, subject to the security validator.",
		InputSchema: schemaObject([]string{"url"}, map[string]any{
			"method":  map[string]any{"type": "string"},
			"url":     map[string]any{"type": "string"},
			"headers": map[string]any{"type": "object"},
			"body":    map[string]any{"type": "string"},
			"timeout": map[string]any{"type": "number"},
		}),
	},
	{
		Name:        "http_request_resource",
		Description: "Issue an HTTP request against a registered resource by identifier.",
		InputSchema: schemaObject([]string{"resource"}, map[string]any{
			"method":   map[string]any{"type": "string"},
			"resource": map[string]any{"type": "string"},
			"path":     map[string]any{"type": "string"},
			"headers":  map[string]any{"type": "object"},
			"body":     map[string]any{"type": "string"},
			"timeout":  map[string]any{"type": "number"},
		}),
	},
	{
		Name:        "ssh_exec",
		Description: "Run a command over a direct SSH connection, subject to the security validator.",
		InputSchema: schemaObject([]string{"host", "username", "password", "command"}, map[string]any{
			"host":     map[string]any{"type": "string"},
			"port":     map[string]any{"type": "number"},
			"username": map[string]any{"type": "string"},
			"password": map[string]any{"type": "string"},
			"command":  map[string]any{"type": "string"},
			"timeout":  map[string]any{"type": "number"},
		}),
	},
	{
		Name:        "ssh_exec_resource",
		Description: "Run a command on a registered SSH resource by identifier.",
		InputSchema: schemaObject([]string{"resource", "command"}, map[string]any{
			"resource": map[string]any{"type": "string"},
			"command":  map[string]any{"type": "string"},
			"timeout":  map[string]any{"type": "number"},
		}),
	},
	{
		Name:        "list_resources",
		Description: "List registered resources, optionally filtered and paginated.",
		InputSchema: schemaObject(nil, map[string]any{
			"filter":     map[string]any{"type": "object"},
			"pagination": map[string]any{"type": "object"},
		}),
	},
}

func findTool(name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}
