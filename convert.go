package refract

import (
	"fmt"
	"sort"
)

// Route type discriminants used at the host boundary. Internally routes are
// the closed Route sum; the flat discriminant-string encoding exists only
// for consumers.
const (
	RouteTypePage     = "page"
	RouteTypePageAPI  = "page-api"
	RouteTypeAppPage  = "app-page"
	RouteTypeAppRoute = "app-route"
	RouteTypeConflict = "conflict"
)

// RouteRecord is the consumer-visible shape of one route. Exactly the
// endpoint slots defined by the route's variant are present; the rest are
// nil. A conflict record has no endpoints at all.
type RouteRecord struct {
	// Pathname is the route's pathname relative to the project path.
	Pathname string

	// Type is the variant discriminant: page, page-api, app-page,
	// app-route, or conflict.
	Type string

	Endpoint     *EndpointHandle
	HTMLEndpoint *EndpointHandle
	RSCEndpoint  *EndpointHandle
	DataEndpoint *EndpointHandle
}

// MiddlewareRecord is the consumer-visible shape of the middleware entry.
type MiddlewareRecord struct {
	Endpoint EndpointHandle
	Runtime  Runtime
	Matcher  []string
}

// EntrypointsRecord is the consumer-visible shape of one Entrypoints
// snapshot. Routes are ordered by pathname so converting the same snapshot
// twice yields structurally identical output.
type EntrypointsRecord struct {
	Routes     []RouteRecord
	Middleware *MiddlewareRecord
}

// convertEntrypoints maps an Entrypoints snapshot to its boundary record.
// The conversion is pure and deterministic; it fails only when the
// middleware's runtime identifier is not in the recognized set.
func (p *Project) convertEntrypoints(e *Entrypoints) (EntrypointsRecord, error) {
	record := EntrypointsRecord{
		Routes: make([]RouteRecord, 0, len(e.Routes)),
	}

	pathnames := make([]string, 0, len(e.Routes))
	for pathname := range e.Routes {
		pathnames = append(pathnames, pathname)
	}
	sort.Strings(pathnames)

	for _, pathname := range pathnames {
		record.Routes = append(record.Routes, p.convertRoute(pathname, e.Routes[pathname]))
	}

	if e.Middleware != nil {
		m, err := p.convertMiddleware(e.Middleware)
		if err != nil {
			return EntrypointsRecord{}, err
		}
		record.Middleware = &m
	}

	return record, nil
}

// convertRoute maps one Route variant to its flat record.
func (p *Project) convertRoute(pathname string, route Route) RouteRecord {
	switch r := route.(type) {
	case PageRoute:
		return RouteRecord{
			Pathname:     pathname,
			Type:         RouteTypePage,
			HTMLEndpoint: p.handle(r.HTMLEndpoint),
			DataEndpoint: p.handle(r.DataEndpoint),
		}
	case PageAPIRoute:
		return RouteRecord{
			Pathname: pathname,
			Type:     RouteTypePageAPI,
			Endpoint: p.handle(r.Endpoint),
		}
	case AppPageRoute:
		return RouteRecord{
			Pathname:     pathname,
			Type:         RouteTypeAppPage,
			HTMLEndpoint: p.handle(r.HTMLEndpoint),
			RSCEndpoint:  p.handle(r.RSCEndpoint),
		}
	case AppRoute:
		return RouteRecord{
			Pathname: pathname,
			Type:     RouteTypeAppRoute,
			Endpoint: p.handle(r.Endpoint),
		}
	case ConflictRoute:
		return RouteRecord{
			Pathname: pathname,
			Type:     RouteTypeConflict,
		}
	default:
		// Route is a closed sum; a new variant here is a programming
		// error surfaced loudly at the boundary.
		panic(fmt.Sprintf("unhandled route variant %T", route))
	}
}

// convertMiddleware maps the middleware entry to its record, failing on an
// unrecognized runtime identifier.
func (p *Project) convertMiddleware(m *Middleware) (MiddlewareRecord, error) {
	runtime, err := ParseRuntime(m.Config.Runtime)
	if err != nil {
		return MiddlewareRecord{}, fmt.Errorf("middleware: %w", err)
	}
	handle := p.handle(m.Endpoint)
	return MiddlewareRecord{
		Endpoint: *handle,
		Runtime:  runtime,
		Matcher:  m.Config.Matcher,
	}, nil
}
