// Package service implements explicit service registration: a service is a
// named set of methods sharing the request Handler shape. Plugin decorators
// are applied to every method once at boot, so request dispatch invokes a
// fully-wrapped handler with no per-request composition cost.
package service

import (
	"sort"

	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/request"
)

// Service is a named group of RPC methods.
type Service struct {
	name    string
	methods map[string]request.Handler
}

// New creates an empty service.
func New(name string) *Service {
	return &Service{name: name, methods: make(map[string]request.Handler)}
}

// Name returns the service name used in call paths.
func (s *Service) Name() string { return s.name }

// Register adds a method. Method names must be unique within the service.
func (s *Service) Register(method string, handler request.Handler) error {
	if method == "" {
		return errors.NewConfig("service %s: method must have a name", s.name)
	}
	if handler == nil {
		return errors.NewConfig("service %s: method %s has no handler", s.name, method)
	}
	if _, exists := s.methods[method]; exists {
		return errors.NewConfig("service %s: method %s registered twice", s.name, method)
	}
	s.methods[method] = handler
	return nil
}

// Handler returns the (possibly decorated) handler for a method.
func (s *Service) Handler(method string) (request.Handler, bool) {
	h, ok := s.methods[method]
	return h, ok
}

// Methods returns the method names sorted for stable diagnostics output.
func (s *Service) Methods() []string {
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// decorate wraps every method. Decorators are applied so the first one in
// the slice observes the request first (outermost wrapper).
func (s *Service) decorate(decorators []request.Decorator) {
	for name, handler := range s.methods {
		wrapped := handler
		for i := len(decorators) - 1; i >= 0; i-- {
			wrapped = decorators[i](wrapped)
		}
		s.methods[name] = wrapped
	}
}

// Registry holds the application's services.
type Registry struct {
	services  []*Service
	byName    map[string]*Service
	decorated bool
}

// NewRegistry creates an empty service registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Service)}
}

// Register adds a service. Service names must be unique.
func (r *Registry) Register(svc *Service) error {
	if svc == nil || svc.name == "" {
		return errors.NewConfig("service must have a name")
	}
	if _, exists := r.byName[svc.name]; exists {
		return errors.NewConfig("service %q registered twice", svc.name)
	}
	r.services = append(r.services, svc)
	r.byName[svc.name] = svc
	return nil
}

// Lookup finds a service by name.
func (r *Registry) Lookup(name string) (*Service, bool) {
	svc, ok := r.byName[name]
	return svc, ok
}

// Services returns the services in registration order.
func (r *Registry) Services() []*Service {
	return r.services
}

// Decorate applies the plugin decorators to every method of every service.
// It runs once at boot; a second call is a boot misconfiguration.
func (r *Registry) Decorate(decorators []request.Decorator) error {
	if r.decorated {
		return errors.NewConfig("services already decorated")
	}
	r.decorated = true
	for _, svc := range r.services {
		svc.decorate(decorators)
	}
	return nil
}
