package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Notification dispatch outcomes used as metric labels.
const (
	NotificationResultQueued    = "queued"
	NotificationResultDropped   = "dropped"
	NotificationResultDelivered = "delivered"
	NotificationResultFailed    = "failed"
)

// MetricsService owns the Prometheus registry for HTTP, cache and scheduling metrics.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheLookups    *prometheus.CounterVec

	meetingsScheduled *prometheus.CounterVec
	meetingConflicts  *prometheus.CounterVec
	meetingStatus     *prometheus.CounterVec
	notifications     *prometheus.CounterVec
	remindersSent     prometheus.Counter
}

// NewMetricsService registers the service collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache reads",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	meetingsScheduled := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meetings_scheduled_total",
		Help: "Meetings created, by meeting type",
	}, []string{"meeting_type"})

	meetingConflicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_conflicts_total",
		Help: "Scheduling attempts rejected because of an overlapping meeting",
	}, []string{"side"})

	meetingStatus := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "meeting_status_changes_total",
		Help: "Meeting status transitions, by target status",
	}, []string{"status"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dispatched_total",
		Help: "Notification events by dispatch result",
	}, []string{"result"})

	remindersSent := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reminders_marked_sent_total",
		Help: "Reminders acknowledged by the dispatcher",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheLookups,
		meetingsScheduled, meetingConflicts, meetingStatus, notifications, remindersSent,
		goroutines,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheLookups:      cacheLookups,
		meetingsScheduled: meetingsScheduled,
		meetingConflicts:  meetingConflicts,
		meetingStatus:     meetingStatus,
		notifications:     notifications,
		remindersSent:     remindersSent,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request latency and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache read and its outcome.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordMeetingScheduled counts a successfully created meeting.
func (m *MetricsService) RecordMeetingScheduled(meetingType string) {
	if m == nil {
		return
	}
	m.meetingsScheduled.WithLabelValues(meetingType).Inc()
}

// RecordMeetingConflict counts a rejected write; side is mentor, student, store or stale.
func (m *MetricsService) RecordMeetingConflict(side string) {
	if m == nil {
		return
	}
	m.meetingConflicts.WithLabelValues(side).Inc()
}

// RecordStatusChange counts a meeting moving into status.
func (m *MetricsService) RecordStatusChange(status string) {
	if m == nil {
		return
	}
	m.meetingStatus.WithLabelValues(status).Inc()
}

// RecordNotification counts a notification dispatch result.
func (m *MetricsService) RecordNotification(result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(result).Inc()
}

// RecordReminderSent counts a dispatcher acknowledgement.
func (m *MetricsService) RecordReminderSent() {
	if m == nil {
		return
	}
	m.remindersSent.Inc()
}
