// Package app assembles the framework: it merges the configuration schema,
// activates and validates plugins, decorates services, builds the router,
// and exposes the single per-request entry point handed to transports.
package app

import (
	"context"
	"log/slog"

	"github.com/guyskk/weirb-hrpc/config"
	"github.com/guyskk/weirb-hrpc/errors"
	"github.com/guyskk/weirb-hrpc/health"
	"github.com/guyskk/weirb-hrpc/metric"
	"github.com/guyskk/weirb-hrpc/plugin"
	"github.com/guyskk/weirb-hrpc/request"
	"github.com/guyskk/weirb-hrpc/router"
	"github.com/guyskk/weirb-hrpc/service"
)

// App is the application container. Register plugins and services, then
// Boot once; after Boot the app is immutable and Handle may be called
// concurrently.
type App struct {
	plugins  *plugin.Registry
	services *service.Registry
	schema   *config.Schema
	logger   *slog.Logger
	metrics  *metric.Registry
	monitor  *health.Monitor

	userFields []config.Field

	// set by Boot
	snapshot  *config.Snapshot
	configMap map[string]any
	factories []request.ScopeFactory
	routes    *router.Router
	booted    bool
}

// Option configures an App at creation.
type Option func(*App)

// WithLogger sets the app logger; defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithMetrics sets the metric registry; defaults to a fresh one.
func WithMetrics(m *metric.Registry) Option {
	return func(a *App) { a.metrics = m }
}

// WithFields declares application-level configuration fields, merged at
// user precedence above internal and plugin fields.
func WithFields(fields ...config.Field) Option {
	return func(a *App) { a.userFields = append(a.userFields, fields...) }
}

// New creates an app with no plugins or services registered.
func New(opts ...Option) *App {
	a := &App{
		plugins:  plugin.NewRegistry(),
		services: service.NewRegistry(),
		logger:   slog.Default(),
		monitor:  health.NewMonitor("hrpc"),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.metrics == nil {
		a.metrics = metric.NewRegistry()
	}
	return a
}

// RegisterPlugin adds a plugin before Boot. Registration order is the scope
// enter order and the decorator application order.
func (a *App) RegisterPlugin(p *plugin.Plugin) error {
	if a.booted {
		return errors.NewConfig("cannot register plugin %s after boot", p.Name)
	}
	return a.plugins.Register(p)
}

// RegisterService adds a service before Boot.
func (a *App) RegisterService(svc *service.Service) error {
	if a.booted {
		return errors.NewConfig("cannot register service after boot")
	}
	return a.services.Register(svc)
}

// Boot runs the boot sequence: schema merge, configuration load and
// resolve, plugin activation, contract validation, service decoration, and
// router construction. Any failure aborts with a boot error; a booted app
// never fails these ways at request time.
func (a *App) Boot(loader *config.Loader) error {
	if a.booted {
		return errors.NewConfig("app already booted")
	}

	schema := config.NewSchema()
	if err := schema.Add(config.SourceUser, a.userFields...); err != nil {
		return err
	}
	if err := schema.Add(config.SourceInternal, config.InternalFields()...); err != nil {
		return err
	}
	if err := schema.Add(config.SourcePlugin, a.plugins.Fields()...); err != nil {
		return err
	}
	a.schema = schema

	fieldNames := make([]string, 0, len(schema.Fields()))
	for _, f := range schema.Fields() {
		fieldNames = append(fieldNames, f.Name)
	}
	loader.RestrictEnv(fieldNames)

	raw, err := loader.Load()
	if err != nil {
		return err
	}
	snapshot, err := schema.Resolve(raw)
	if err != nil {
		return err
	}
	a.snapshot = snapshot

	if err := a.plugins.Activate(snapshot); err != nil {
		return err
	}

	if err := a.plugins.Validate(fieldNames); err != nil {
		return err
	}

	if err := a.services.Decorate(a.plugins.Decorators()); err != nil {
		return err
	}

	a.routes = router.New(snapshot.GetString("url_prefix", "/api"), a.services)
	a.factories = a.plugins.ScopeFactories()
	a.configMap = snapshot.Map()
	a.booted = true

	a.logger.Info("app booted",
		"plugins", len(a.plugins.Plugins()),
		"services", len(a.services.Services()),
		"routes", len(a.routes.Routes()),
		"url_prefix", a.routes.Prefix(),
	)
	return nil
}

// Context builds a fresh request context over the boot-time config snapshot
// and the plugin scope factories. Exposed for tests and for transports that
// drive the lifecycle themselves; Handle is the usual entry.
func (a *App) Context(std context.Context) *request.Context {
	return request.New(std, a.configMap, a.factories,
		request.WithLogger(a.logger))
}

// Snapshot returns the resolved configuration. Valid after Boot.
func (a *App) Snapshot() *config.Snapshot { return a.snapshot }

// Schema returns the merged field table. Valid after Boot.
func (a *App) Schema() *config.Schema { return a.schema }

// Router returns the call lookup table. Valid after Boot.
func (a *App) Router() *router.Router { return a.routes }

// Plugins returns the plugin registry.
func (a *App) Plugins() *plugin.Registry { return a.plugins }

// Services returns the service registry.
func (a *App) Services() *service.Registry { return a.services }

// Metrics returns the metric registry.
func (a *App) Metrics() *metric.Registry { return a.metrics }

// Health returns the health monitor served at /healthz.
func (a *App) Health() *health.Monitor { return a.monitor }

// Logger returns the app logger.
func (a *App) Logger() *slog.Logger { return a.logger }
