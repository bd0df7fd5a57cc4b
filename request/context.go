// Package request implements the per-request context: a dependency
// container paired with the composed resource scope for one call. A fresh
// Context is created for every inbound request and never shared.
package request

import (
	"context"
	"log/slog"

	"github.com/guyskk/weirb-hrpc/container"
	"github.com/guyskk/weirb-hrpc/gateway"
	"github.com/guyskk/weirb-hrpc/scope"
)

// Handler processes one request under an entered Context. It is the shape
// service methods and decorators share.
type Handler func(ctx *Context, req *gateway.Request) (*gateway.Response, error)

// Decorator wraps a Handler; decorators registered by plugins are applied
// to every service method in plugin registration order.
type Decorator func(next Handler) Handler

// ScopeFactory builds one plugin's scope participant for a request. The
// factory receives the Context so setup can Require capabilities and
// Provide new ones before the handler runs.
type ScopeFactory func(ctx *Context) scope.Participant

// Context is the per-request dependency container plus the composed scope
// lifecycle. It embeds the container so handlers call Require/Provide on it
// directly. Owned by a single request; not safe for concurrent use.
type Context struct {
	*container.Container

	std      context.Context
	logger   *slog.Logger
	composer *scope.Composer
}

// Option configures a Context at creation.
type Option func(*Context)

// WithLogger sets the request-scoped logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Context) { c.logger = logger }
}

// New creates a request context over the immutable config snapshot and
// builds the scope composer by invoking every factory in plugin order. The
// factories run immediately, before Enter, so participants exist in their
// declared order even when a factory captures the Context.
func New(std context.Context, config map[string]any, factories []ScopeFactory, opts ...Option) *Context {
	if std == nil {
		std = context.Background()
	}
	c := &Context{
		Container: container.New(config),
		std:       std,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	participants := make([]scope.Participant, 0, len(factories))
	for _, factory := range factories {
		participants = append(participants, factory(c))
	}
	c.composer = scope.NewComposer(participants)
	return c
}

// Enter runs the setup phase of every scope participant in plugin order.
// A non-nil return means setup failed and the already-started participants
// were unwound; the request must not proceed to its handler.
func (c *Context) Enter() error {
	return c.composer.Enter()
}

// Exit runs the teardown phase in reverse plugin order, injecting cause
// (the handler outcome's error, or nil). It must be called exactly once
// after a successful Enter, regardless of how handling went.
func (c *Context) Exit(cause error) error {
	return c.composer.Exit(cause)
}

// ScopeState exposes the lifecycle state, mainly for diagnostics.
func (c *Context) ScopeState() scope.State {
	return c.composer.State()
}

// Context returns the standard library context carrying cancellation and
// deadline for this request.
func (c *Context) Context() context.Context {
	return c.std
}

// Logger returns the request-scoped structured logger.
func (c *Context) Logger() *slog.Logger {
	return c.logger
}
