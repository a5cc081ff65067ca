package domain

// =============================================================================
// Runtime Kinds
// =============================================================================

// RuntimeKind classifies the application runtime detected in a working copy.
type RuntimeKind string

const (
	RuntimePythonFlask   RuntimeKind = "python-flask"
	RuntimePythonGeneric RuntimeKind = "python-generic"
	RuntimeNode          RuntimeKind = "node"
	RuntimeUnknown       RuntimeKind = "unknown"
)

// DefaultListenPort is assumed when no port can be inferred from the source.
const DefaultListenPort = 8080

// =============================================================================
// Application Profile
// =============================================================================

// AppProfile holds the facts inferred about an application by static
// inspection of its working copy. Immutable once produced; the image builder
// consumes it to pick a containerization strategy.
type AppProfile struct {
	Runtime       RuntimeKind `json:"runtime"`
	EntryPoint    string      `json:"entry_point,omitempty"`
	ListenPort    int         `json:"listen_port"`
	HasDockerfile bool        `json:"has_dockerfile"`
}
