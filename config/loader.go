package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/guyskk/weirb-hrpc/errors"
)

// EnvPrefix marks environment variables consumed as configuration
// overrides: HRPC_PORT=9000 sets the "port" field.
const EnvPrefix = "HRPC_"

// Loader assembles the raw configuration from layered sources. Later layers
// override earlier ones: files in the order given, then environment
// variables, then explicit overrides (CLI flags).
type Loader struct {
	paths     []string
	overrides map[string]any
	environ   func() []string
	envAllow  map[string]bool
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithFile appends a configuration file layer. The format is chosen by
// extension: .json, or .yaml/.yml.
func WithFile(path string) LoaderOption {
	return func(l *Loader) { l.paths = append(l.paths, path) }
}

// WithOverride sets one field explicitly, above all file and environment
// layers.
func WithOverride(name string, value any) LoaderOption {
	return func(l *Loader) { l.overrides[name] = value }
}

// WithEnviron replaces the environment source, for tests.
func WithEnviron(environ func() []string) LoaderOption {
	return func(l *Loader) { l.environ = environ }
}

// NewLoader creates a loader with the given layers.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		overrides: make(map[string]any),
		environ:   os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RestrictEnv limits the environment layer to the named fields. The app
// applies the merged schema's field names here so unrelated HRPC_ variables
// (CLI settings, for instance) are not mistaken for configuration.
func (l *Loader) RestrictEnv(names []string) {
	l.envAllow = make(map[string]bool, len(names))
	for _, name := range names {
		l.envAllow[name] = true
	}
}

// Load merges all layers into the raw field map handed to Schema.Resolve.
func (l *Loader) Load() (map[string]any, error) {
	raw := make(map[string]any)

	for _, path := range l.paths {
		layer, err := loadFile(path)
		if err != nil {
			return nil, err
		}
		for k, v := range layer {
			raw[k] = v
		}
	}

	for _, entry := range l.environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if name == "" {
			continue
		}
		if l.envAllow != nil && !l.envAllow[name] {
			continue
		}
		raw[name] = value
	}

	for k, v := range l.overrides {
		raw[k] = v
	}
	return raw, nil
}

func loadFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapConfig(err, "read %s", path)
	}
	layer := make(map[string]any)
	switch ext := filepath.Ext(path); ext {
	case ".json":
		if err := json.Unmarshal(data, &layer); err != nil {
			return nil, errors.WrapConfig(err, "parse %s", path)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &layer); err != nil {
			return nil, errors.WrapConfig(err, "parse %s", path)
		}
	default:
		return nil, errors.NewConfig("unsupported config format %q in %s", ext, path)
	}
	return layer, nil
}
