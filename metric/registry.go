// Package metric manages the framework's Prometheus metrics: request
// totals and durations per call, scope lifecycle failures, and the HTTP
// handler serving them. An app owns one Registry; nothing here is
// process-global.
package metric

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/guyskk/weirb-hrpc/errors"
)

// Registry wraps a dedicated Prometheus registry carrying the framework
// core metrics, with room for plugin-registered collectors.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Core               *Core
	registered         map[string]prometheus.Collector
	mu                 sync.RWMutex
}

// NewRegistry creates a registry with the core framework metrics plus the
// Go runtime and process collectors.
func NewRegistry() *Registry {
	r := &Registry{
		prometheusRegistry: prometheus.NewRegistry(),
		Core:               NewCore(),
		registered:         make(map[string]prometheus.Collector),
	}
	r.prometheusRegistry.MustRegister(
		r.Core.RequestsTotal,
		r.Core.RequestDuration,
		r.Core.RequestsInFlight,
		r.Core.ScopeFailures,
		r.Core.ProtocolViolations,
	)
	r.prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// PrometheusRegistry returns the underlying Prometheus registry.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	return r.prometheusRegistry
}

// Register adds a plugin-owned collector under "<plugin>.<name>". Duplicate
// keys and Prometheus registration conflicts are configuration errors.
func (r *Registry) Register(plugin, name string, collector prometheus.Collector) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", plugin, name)
	if _, exists := r.registered[key]; exists {
		return errors.NewConfig("metric %s already registered", key)
	}
	if err := r.prometheusRegistry.Register(collector); err != nil {
		var already prometheus.AlreadyRegisteredError
		if stderrors.As(err, &already) {
			return errors.WrapConfig(err, "metric %s conflicts with an existing collector", key)
		}
		return errors.Wrap(err, "Registry", "Register", "register "+key)
	}
	r.registered[key] = collector
	return nil
}

// Unregister removes a plugin-owned collector.
func (r *Registry) Unregister(plugin, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := fmt.Sprintf("%s.%s", plugin, name)
	collector, exists := r.registered[key]
	if !exists {
		return false
	}
	ok := r.prometheusRegistry.Unregister(collector)
	if ok {
		delete(r.registered, key)
	}
	return ok
}
