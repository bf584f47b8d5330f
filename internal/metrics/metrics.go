// Package metrics exposes the pool's Prometheus instrumentation, adapted
// from the teacher's taskqueue_* metric set and renamed to the
// dispatcher's own vocabulary (submission, assignment, retries, worker
// liveness, decommissions) rather than a persistent queue's.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TasksSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpool_tasks_submitted_total",
			Help: "Total number of tasks submitted to the pool",
		},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpool_tasks_completed_total",
			Help: "Total number of tasks that reached a terminal result",
		},
		[]string{"status"},
	)

	TaskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskpool_task_duration_seconds",
			Help:    "Task execution duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"status"},
	)

	TaskRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "taskpool_task_retries_total",
			Help: "Total number of task reassignments due to a reschedule decision",
		},
	)

	QueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskpool_unassigned_depth",
			Help: "Current number of uids waiting in the unassigned queue",
		},
	)

	ActiveWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskpool_active_workers",
			Help: "Current number of workers classified active by the health monitor",
		},
	)

	WorkerDecommissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpool_worker_decommissions_total",
			Help: "Total number of worker decommission events",
		},
		[]string{"reason"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "taskpool_http_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpool_http_requests_total",
			Help: "Total number of admin HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "taskpool_websocket_connections",
			Help: "Current number of connected event-stream dashboard clients",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "taskpool_events_published_total",
			Help: "Total number of events broadcast on the event bus",
		},
		[]string{"type"},
	)
)

// RecordTaskCompletion records a terminal result and its dispatch-to-result
// duration, keyed by pass/fail status.
func RecordTaskCompletion(status string, duration float64) {
	TasksCompleted.WithLabelValues(status).Inc()
	TaskDuration.WithLabelValues(status).Observe(duration)
}

// RecordWorkerDecommission increments the decommission counter for reason.
func RecordWorkerDecommission(reason string) {
	WorkerDecommissions.WithLabelValues(reason).Inc()
}

// RecordHTTPRequest records one admin HTTP request/response pair.
func RecordHTTPRequest(method, path, status string, duration float64) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration)
	HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordEventPublished increments the event bus counter for an event type.
func RecordEventPublished(eventType string) {
	EventsPublished.WithLabelValues(eventType).Inc()
}
