package refract

// Endpoint is an opaque handle to a buildable target. Its identity is its
// position in the computation graph, not its value; building or emitting
// output for it belongs to the chunk emission layer, this core only threads
// endpoints through to consumers.
type Endpoint struct {
	key string
}

// newEndpoint creates an endpoint identified by a graph key.
func newEndpoint(key string) *Endpoint {
	return &Endpoint{key: key}
}

// Key returns the computation graph key identifying this endpoint.
func (e *Endpoint) Key() string {
	return e.key
}

// EndpointHandle is a capability-style reference handed across the host
// boundary: an identifier plus a back-reference to the owning project,
// resolved through the project on each use. The handle never owns the
// endpoint, so it cannot outlive the project; resolving after Close fails
// with ErrProjectClosed.
type EndpointHandle struct {
	id      string
	project *Project
}

// ID returns the handle's endpoint identifier.
func (h EndpointHandle) ID() string {
	return h.id
}

// Resolve returns the endpoint the handle refers to, going through the
// owning project's registry. It fails if the project has been closed or the
// endpoint is no longer registered.
func (h EndpointHandle) Resolve() (*Endpoint, error) {
	return h.project.endpoint(h.id)
}
