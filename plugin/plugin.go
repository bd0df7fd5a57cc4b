// Package plugin defines the boot-time plugin contract: each plugin is an
// explicit capability descriptor declaring the configuration fields it
// contributes, the capability keys it provides and requires, and its
// optional per-request scope participant and handler decorator. The
// registry validates the whole contract once at boot, before any traffic.
package plugin

import (
	"github.com/guyskk/weirb-hrpc/config"
	"github.com/guyskk/weirb-hrpc/container"
	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/request"
)

// Plugin is an explicit capability descriptor. Everything the framework
// needs to know is declared up front; nothing is probed at request time.
type Plugin struct {
	// Name identifies the plugin in diagnostics and validation errors.
	Name string

	// Fields are configuration fields the plugin contributes to the merged
	// schema, at plugin precedence.
	Fields []config.Field

	// Provides lists the capability keys the plugin registers on every
	// request context (via its scope participant or decorator).
	Provides []string

	// Requires lists the capability keys the plugin depends on. Each must
	// be provided by configuration or by some registered plugin, or boot
	// fails.
	Requires []string

	// Activate is an optional boot hook run after configuration resolves,
	// in registration order. Plugins build their boot-time state here.
	Activate func(snap *config.Snapshot) error

	// Scope optionally contributes one participant to every request's
	// composed scope, entered in plugin registration order.
	Scope request.ScopeFactory

	// Decorator optionally wraps every service method, applied in plugin
	// registration order at boot.
	Decorator request.Decorator
}

// Registry holds the fixed plugin set. Registration order is significant:
// it is the scope enter order and the decorator application order.
type Registry struct {
	plugins []*Plugin
	byName  map[string]*Plugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Plugin)}
}

// Register adds a plugin. Names must be unique and non-empty.
func (r *Registry) Register(p *Plugin) error {
	if p == nil || p.Name == "" {
		return errors.NewConfig("plugin must have a name")
	}
	if _, exists := r.byName[p.Name]; exists {
		return errors.NewConfig("plugin %q registered twice", p.Name)
	}
	r.plugins = append(r.plugins, p)
	r.byName[p.Name] = p
	return nil
}

// Plugins returns the plugins in registration order.
func (r *Registry) Plugins() []*Plugin {
	return r.plugins
}

// Lookup finds a plugin by name.
func (r *Registry) Lookup(name string) (*Plugin, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Fields returns every plugin's configuration fields, in registration
// order, for the schema merge.
func (r *Registry) Fields() []config.Field {
	var fields []config.Field
	for _, p := range r.plugins {
		fields = append(fields, p.Fields...)
	}
	return fields
}

// Activate runs every plugin's boot hook in registration order.
func (r *Registry) Activate(snap *config.Snapshot) error {
	for _, p := range r.plugins {
		if p.Activate == nil {
			continue
		}
		if err := p.Activate(snap); err != nil {
			return errors.Wrap(err, "Registry", "Activate", "activate plugin "+p.Name)
		}
	}
	return nil
}

// ScopeFactories returns the scope factories of plugins that declare one,
// in registration order.
func (r *Registry) ScopeFactories() []request.ScopeFactory {
	var factories []request.ScopeFactory
	for _, p := range r.plugins {
		if p.Scope != nil {
			factories = append(factories, p.Scope)
		}
	}
	return factories
}

// Decorators returns the decorators of plugins that declare one, in
// registration order.
func (r *Registry) Decorators() []request.Decorator {
	var decorators []request.Decorator
	for _, p := range r.plugins {
		if p.Decorator != nil {
			decorators = append(decorators, p.Decorator)
		}
	}
	return decorators
}

// Validate checks every plugin's requires against the provided set: each
// resolved configuration field as "config.<field>" plus the union of all
// plugins' provides. Validation is existence-only; values are not typed
// here. The first unsatisfied plugin fails boot with a dependency error
// naming it and the missing keys.
func (r *Registry) Validate(configFields []string) error {
	provided := make(map[string]bool, len(configFields))
	for _, field := range configFields {
		provided[container.ConfigPrefix+field] = true
	}
	for _, p := range r.plugins {
		for _, key := range p.Provides {
			provided[key] = true
		}
	}

	for _, p := range r.plugins {
		var missing []string
		for _, key := range p.Requires {
			if !provided[key] {
				missing = append(missing, key)
			}
		}
		if len(missing) > 0 {
			return errors.NewPluginDependency(p.Name, missing)
		}
	}
	return nil
}
