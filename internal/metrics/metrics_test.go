package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New()

	m.RegistrationOutcome("created")
	m.RegistrationOutcome("created")
	m.RegistrationOutcome("capacity_exceeded")
	m.EventMutation("deleted")
	m.ObserveRequest("/:id/", http.MethodGet, http.StatusOK, 15*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.registrations.WithLabelValues("created")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.registrations.WithLabelValues("capacity_exceeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventMutations.WithLabelValues("deleted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/:id/", "GET", "200")))
}

func TestNilMetricsAreNoOps(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RegistrationOutcome("created")
		m.EventMutation("created")
		m.ObserveRequest("/", http.MethodGet, 200, time.Millisecond)
		m.PublishFailed("event.created")
		m.SearchFallback()
	})
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.EventMutation("created")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `eventos_event_mutations_total{action="created"} 1`)
}
