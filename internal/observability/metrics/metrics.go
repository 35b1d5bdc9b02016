package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "centerattend_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "centerattend_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	attendanceMarks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "centerattend_attendance_marks_total",
		Help: "Count of attendance mark attempts by result",
	}, []string{"result"})

	bulkRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "centerattend_bulk_records_total",
		Help: "Count of bulk-submitted attendance records by result",
	}, []string{"result"})

	loginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "centerattend_login_attempts_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	registrations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "centerattend_registrations_total",
		Help: "Count of registration attempts by role and result",
	}, []string{"role", "result"})

	presentToday = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "centerattend_present_today",
		Help: "Subjects marked present today, per center",
	}, []string{"center"})

	liveFeedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "centerattend_live_feed_clients",
		Help: "Connected live attendance feed subscribers",
	})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveMark increments the mark counter for the given result.
func ObserveMark(result string) {
	attendanceMarks.WithLabelValues(result).Inc()
}

// ObserveBulkRecord increments the bulk record counter for the given result.
func ObserveBulkRecord(result string) {
	bulkRecords.WithLabelValues(result).Inc()
}

// ObserveLogin records a login attempt outcome.
func ObserveLogin(result string) {
	loginAttempts.WithLabelValues(result).Inc()
}

// ObserveRegistration records a registration attempt outcome.
func ObserveRegistration(role, result string) {
	registrations.WithLabelValues(role, result).Inc()
}

// SetPresentToday sets the per-center present gauge.
func SetPresentToday(center string, count int) {
	if count < 0 {
		count = 0
	}
	presentToday.WithLabelValues(center).Set(float64(count))
}

// IncrementFeedClients increments the live feed subscriber gauge.
func IncrementFeedClients() {
	liveFeedClients.Inc()
}

// DecrementFeedClients decrements the live feed subscriber gauge.
func DecrementFeedClients() {
	liveFeedClients.Dec()
}
