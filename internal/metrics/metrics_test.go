package metrics

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCheckIn("ok")
		m.ObserveCheckOut()
		m.ObserveGeofence("inside")
		m.ObserveZoneCacheRefresh()
		m.ObservePhotoUpload("failed")
		m.ObserveTaskTransition("idle")
		m.ObserveLogoutBlocked()
	})
}

func TestCountersAndHandler(t *testing.T) {
	m := New()
	m.ObserveCheckIn("ok")
	m.ObserveCheckIn("ok")
	m.ObserveCheckIn("outside_zone")
	m.ObserveLogoutBlocked()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CheckIns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckIns.WithLabelValues("outside_zone")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LogoutsBlocked))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `attendance_check_ins_total{result="ok"} 2`)
}
