// Package router resolves inbound calls to service methods. The call
// convention is POST /<prefix>/<Service>/<method>; NATS transports resolve
// the same table by (service, method) pair. Route matching itself is
// delegated to the transport (chi on HTTP); this package owns the lookup
// semantics and the not-found/wrong-verb error mapping.
package router

import (
	"net/http"
	"strings"

	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/request"
	"github.com/guyskk/weirb-hrpc/service"
)

// Route describes one resolvable call, for transport mounting and boot
// diagnostics.
type Route struct {
	Service string
	Method  string
	Path    string
}

// Router is the immutable lookup table built at boot from the service
// registry.
type Router struct {
	prefix   string
	services *service.Registry
}

// New creates a router over the registry. prefix is normalized to a single
// leading slash and no trailing slash ("/api").
func New(prefix string, services *service.Registry) *Router {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	return &Router{prefix: prefix, services: services}
}

// Prefix returns the normalized URL prefix.
func (r *Router) Prefix() string { return r.prefix }

// Lookup resolves a transport verb and path to a handler. An unknown
// service or method is a not-found domain error; a verb other than POST on
// a known call is a method-not-allowed domain error.
func (r *Router) Lookup(verb, path string) (request.Handler, error) {
	rest, ok := strings.CutPrefix(path, r.prefix)
	if !ok {
		return nil, errors.NewNotFound("no route for %s", path)
	}
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, errors.NewNotFound("no route for %s", path)
	}
	handler, err := r.LookupCall(parts[0], parts[1])
	if err != nil {
		return nil, err
	}
	if verb != http.MethodPost {
		return nil, errors.NewMethodNotAllowed("method %s not allowed, use POST", verb)
	}
	return handler, nil
}

// LookupCall resolves a (service, method) pair directly, for transports
// that address calls without a URL path.
func (r *Router) LookupCall(serviceName, methodName string) (request.Handler, error) {
	svc, ok := r.services.Lookup(serviceName)
	if !ok {
		return nil, errors.NewNotFound("service %s not found", serviceName)
	}
	handler, ok := svc.Handler(methodName)
	if !ok {
		return nil, errors.NewNotFound("method %s.%s not found", serviceName, methodName)
	}
	return handler, nil
}

// Routes enumerates every resolvable call in service registration order,
// methods sorted within each service.
func (r *Router) Routes() []Route {
	var routes []Route
	for _, svc := range r.services.Services() {
		for _, method := range svc.Methods() {
			routes = append(routes, Route{
				Service: svc.Name(),
				Method:  method,
				Path:    r.prefix + "/" + svc.Name() + "/" + method,
			})
		}
	}
	return routes
}
