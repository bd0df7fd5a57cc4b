package config

import "time"

// Snapshot is the resolved, type-checked configuration. It is built once at
// boot by Schema.Resolve and never mutated afterwards; requests read it
// through the container's "config." namespace.
type Snapshot struct {
	values map[string]any
}

// Map returns a copy of the resolved values, suitable for handing to the
// per-request container.
func (s *Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// Has reports whether the field was resolved to a value.
func (s *Snapshot) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// GetString extracts a string field, falling back to defaultVal.
func (s *Snapshot) GetString(name string, defaultVal string) string {
	if v, ok := s.values[name].(string); ok {
		return v
	}
	return defaultVal
}

// GetInt extracts an int field, falling back to defaultVal.
func (s *Snapshot) GetInt(name string, defaultVal int) int {
	if v, ok := s.values[name].(int); ok {
		return v
	}
	return defaultVal
}

// GetFloat64 extracts a float field, falling back to defaultVal.
func (s *Snapshot) GetFloat64(name string, defaultVal float64) float64 {
	if v, ok := s.values[name].(float64); ok {
		return v
	}
	return defaultVal
}

// GetBool extracts a bool field, falling back to defaultVal.
func (s *Snapshot) GetBool(name string, defaultVal bool) bool {
	if v, ok := s.values[name].(bool); ok {
		return v
	}
	return defaultVal
}

// GetDuration extracts a duration field, falling back to defaultVal.
func (s *Snapshot) GetDuration(name string, defaultVal time.Duration) time.Duration {
	if v, ok := s.values[name].(time.Duration); ok {
		return v
	}
	return defaultVal
}
