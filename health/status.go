// Package health provides the app's health reporting served at /healthz.
package health

import (
	"sync"
	"time"
)

// State is the aggregate health level.
type State string

const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// Status is the health report for the app or one of its parts.
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	Status      State     `json:"status"`
	Message     string    `json:"message,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Uptime      string    `json:"uptime,omitempty"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
}

// IsHealthy reports whether the status is healthy.
func (s Status) IsHealthy() bool { return s.Status == StateHealthy }

// WithSubStatus appends a sub-status and returns a copy. The aggregate
// degrades to the worst sub-status level.
func (s Status) WithSubStatus(sub Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, sub)
	if sub.Status == StateUnhealthy {
		s.Status = StateUnhealthy
		s.Healthy = false
	} else if sub.Status == StateDegraded && s.Status == StateHealthy {
		s.Status = StateDegraded
	}
	return s
}

// Monitor tracks app liveness from boot time. Transports query it for
// /healthz; plugins may mark the app degraded or unhealthy.
type Monitor struct {
	component string
	started   time.Time

	mu      sync.RWMutex
	state   State
	message string
}

// NewMonitor creates a monitor reporting healthy from now.
func NewMonitor(component string) *Monitor {
	return &Monitor{
		component: component,
		started:   time.Now(),
		state:     StateHealthy,
	}
}

// Set updates the aggregate state with a message.
func (m *Monitor) Set(state State, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.message = message
}

// Status builds the current report.
func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Status{
		Component: m.component,
		Healthy:   m.state == StateHealthy,
		Status:    m.state,
		Message:   m.message,
		Timestamp: time.Now(),
		Uptime:    time.Since(m.started).Round(time.Second).String(),
	}
}
