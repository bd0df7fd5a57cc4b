package metric

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveRequest(t *testing.T) {
	r := NewRegistry()
	r.Core.ObserveRequest("Echo", "say", "ok", 5*time.Millisecond)
	r.Core.ObserveRequest("Echo", "say", "ok", 7*time.Millisecond)
	r.Core.ObserveRequest("Echo", "say", "domain_error", time.Millisecond)

	assert.Equal(t, float64(2),
		testutil.ToFloat64(r.Core.RequestsTotal.WithLabelValues("Echo", "say", "ok")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(r.Core.RequestsTotal.WithLabelValues("Echo", "say", "domain_error")))
}

func TestRegisterPluginCollector(t *testing.T) {
	r := NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ratelimit_rejections_total",
		Help: "Requests rejected by the rate limiter",
	})
	require.NoError(t, r.Register("ratelimit", "rejections", counter))

	err := r.Register("ratelimit", "rejections", counter)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.True(t, r.Unregister("ratelimit", "rejections"))
	assert.False(t, r.Unregister("ratelimit", "rejections"))
}

func TestHandlerServesMetrics(t *testing.T) {
	r := NewRegistry()
	r.Core.ObserveRequest("Echo", "say", "ok", time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "hrpc_requests_total")
}
