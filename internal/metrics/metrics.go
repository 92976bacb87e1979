// Package metrics holds the prometheus collectors of the attendance service.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "attendance"

type Metrics struct {
	registry *prometheus.Registry

	CheckIns            *prometheus.CounterVec
	CheckOuts           prometheus.Counter
	GeofenceValidations *prometheus.CounterVec
	ZoneCacheRefreshes  prometheus.Counter
	PhotoUploads        *prometheus.CounterVec
	TaskTransitions     *prometheus.CounterVec
	LogoutsBlocked      prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CheckIns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_ins_total",
			Help:      "Check-in attempts by result.",
		}, []string{"result"}),
		CheckOuts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "check_outs_total",
			Help:      "Completed check-outs.",
		}),
		GeofenceValidations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geofence_validations_total",
			Help:      "Geofence validations by outcome.",
		}, []string{"outcome"}),
		ZoneCacheRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zone_cache_refreshes_total",
			Help:      "Active zone snapshots fetched from the store.",
		}),
		PhotoUploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "photo_uploads_total",
			Help:      "Best-effort check-in photo uploads by result.",
		}, []string{"result"}),
		TaskTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_transitions_total",
			Help:      "Accepted task guard transitions by target status.",
		}, []string{"status"}),
		LogoutsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_blocked_total",
			Help:      "Logout attempts refused because a field task is active.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.CheckIns, m.CheckOuts, m.GeofenceValidations, m.ZoneCacheRefreshes,
		m.PhotoUploads, m.TaskTransitions, m.LogoutsBlocked,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCheckIn(result string) {
	if m == nil {
		return
	}
	m.CheckIns.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveCheckOut() {
	if m == nil {
		return
	}
	m.CheckOuts.Inc()
}

func (m *Metrics) ObserveGeofence(outcome string) {
	if m == nil {
		return
	}
	m.GeofenceValidations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveZoneCacheRefresh() {
	if m == nil {
		return
	}
	m.ZoneCacheRefreshes.Inc()
}

func (m *Metrics) ObservePhotoUpload(result string) {
	if m == nil {
		return
	}
	m.PhotoUploads.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveTaskTransition(status string) {
	if m == nil {
		return
	}
	m.TaskTransitions.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveLogoutBlocked() {
	if m == nil {
		return
	}
	m.LogoutsBlocked.Inc()
}
