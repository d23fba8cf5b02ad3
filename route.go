package refract

import (
	"errors"
	"fmt"
)

// ErrUnknownRuntime is returned when a middleware runtime identifier cannot
// be mapped into the recognized set. This is a configuration error, not a
// transient condition.
var ErrUnknownRuntime = errors.New("unknown middleware runtime")

// Runtime identifies the execution environment of a middleware endpoint.
type Runtime int

const (
	// RuntimeEdge runs the middleware in the edge runtime.
	RuntimeEdge Runtime = iota

	// RuntimeNodeJS runs the middleware in the Node.js runtime.
	RuntimeNodeJS
)

// String returns the external identifier of the runtime.
func (r Runtime) String() string {
	switch r {
	case RuntimeEdge:
		return "edge"
	case RuntimeNodeJS:
		return "nodejs"
	default:
		return "unknown"
	}
}

// ParseRuntime maps an external runtime identifier into the closed Runtime
// enumeration. Unrecognized identifiers fail with ErrUnknownRuntime.
func ParseRuntime(s string) (Runtime, error) {
	switch s {
	case "edge":
		return RuntimeEdge, nil
	case "nodejs":
		return RuntimeNodeJS, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownRuntime, s)
	}
}

// Route is a closed sum over the route variants a project can produce. The
// variant types make invalid endpoint slot combinations unrepresentable:
// each variant carries exactly the endpoints its kind defines.
type Route interface {
	isRoute()
}

// PageRoute is a pages-directory page with server-rendered HTML and a data
// endpoint.
type PageRoute struct {
	HTMLEndpoint *Endpoint
	DataEndpoint *Endpoint
}

// PageAPIRoute is a pages-directory API handler.
type PageAPIRoute struct {
	Endpoint *Endpoint
}

// AppPageRoute is an app-directory page with an HTML endpoint and a server
// component payload endpoint.
type AppPageRoute struct {
	HTMLEndpoint *Endpoint
	RSCEndpoint  *Endpoint
}

// AppRoute is an app-directory route handler.
type AppRoute struct {
	Endpoint *Endpoint
}

// ConflictRoute signals that two source files mapped to the same pathname.
// It carries no endpoints; the absence is the signal that the collision
// must be resolved by the author.
type ConflictRoute struct{}

func (PageRoute) isRoute()     {}
func (PageAPIRoute) isRoute()  {}
func (AppPageRoute) isRoute()  {}
func (AppRoute) isRoute()      {}
func (ConflictRoute) isRoute() {}

// Middleware is the project's middleware entry, if one exists.
type Middleware struct {
	Endpoint *Endpoint
	Config   MiddlewareConfig
}

// MiddlewareConfig is the middleware's declared configuration. Runtime is
// kept as the raw external identifier until conversion, which maps it into
// the Runtime enumeration and fails on unrecognized values.
type MiddlewareConfig struct {
	Runtime string   `json:"runtime" yaml:"runtime"`
	Matcher []string `json:"matcher,omitempty" yaml:"matcher,omitempty"`
}

// Entrypoints is one strongly consistent snapshot of a project's routable
// surface: a mapping from pathname to Route plus an optional middleware.
// Snapshots are immutable once produced; the next evaluation supersedes
// rather than mutates them.
type Entrypoints struct {
	Routes     map[string]Route
	Middleware *Middleware
}
