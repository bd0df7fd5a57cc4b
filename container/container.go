// Package container implements the per-request dependency container backing
// Require/Provide. Capability keys are namespaced strings; keys under the
// "config." namespace resolve against the immutable boot-time configuration
// snapshot, every other key against values registered by plugins during the
// request.
package container

import (
	"strings"

	"github.com/guyskk/weirb-hrpc/errors"
)

// ConfigPrefix is the namespace under which every resolved configuration
// field is exposed to Require.
const ConfigPrefix = "config."

// Provider lazily constructs a value on first Require of its key. Providers
// are pure constructors; they are invoked at most once and the result is
// memoized.
type Provider func() (any, error)

// Container is the per-request capability key/value store. It is owned by a
// single request lifecycle and is not safe for concurrent use.
type Container struct {
	config    map[string]any
	values    map[string]any
	providers map[string]Provider
}

// New creates a container over an immutable configuration snapshot. The
// snapshot is shared across requests and must not be mutated.
func New(config map[string]any) *Container {
	return &Container{
		config:    config,
		values:    make(map[string]any),
		providers: make(map[string]Provider),
	}
}

// Require resolves a capability key. Keys under "config." look up the
// configuration snapshot directly; all other keys check registered values
// first, then lazy providers (invoking the provider once and memoizing).
// An unknown key fails with a dependency error.
func (c *Container) Require(key string) (any, error) {
	if strings.HasPrefix(key, ConfigPrefix) {
		field := key[len(ConfigPrefix):]
		value, ok := c.config[field]
		if !ok {
			return nil, errors.NewDependency(key)
		}
		return value, nil
	}

	if value, ok := c.values[key]; ok {
		return value, nil
	}

	provider, ok := c.providers[key]
	if !ok {
		return nil, errors.NewDependency(key)
	}
	value, err := provider()
	if err != nil {
		return nil, errors.Wrap(err, "Container", "Require", "construct "+key)
	}
	c.values[key] = value
	return value, nil
}

// Provide registers an eager value for key. Re-providing a key overwrites
// any prior registration, eager or lazy.
func (c *Container) Provide(key string, value any) {
	delete(c.providers, key)
	c.values[key] = value
}

// ProvideLazy registers a constructor invoked on first Require of key.
// Re-providing a key overwrites any prior registration.
func (c *Container) ProvideLazy(key string, provider Provider) {
	delete(c.values, key)
	c.providers[key] = provider
}

// Has reports whether key would resolve without invoking lazy providers.
func (c *Container) Has(key string) bool {
	if strings.HasPrefix(key, ConfigPrefix) {
		_, ok := c.config[key[len(ConfigPrefix):]]
		return ok
	}
	if _, ok := c.values[key]; ok {
		return true
	}
	_, ok := c.providers[key]
	return ok
}

// Resolve requires key and type-asserts the value.
func Resolve[T any](c *Container, key string) (T, error) {
	var zero T
	value, err := c.Require(key)
	if err != nil {
		return zero, err
	}
	typed, ok := value.(T)
	if !ok {
		return zero, errors.NewDependency(key)
	}
	return typed, nil
}
