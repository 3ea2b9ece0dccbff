package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civictrack_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "civictrack_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civictrack_logins_total",
		Help: "Count of login attempts by result",
	}, []string{"result"})

	complaintsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civictrack_complaints_created_total",
		Help: "Count of complaints filed by citizens",
	}, []string{"category"})

	complaintUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civictrack_complaint_updates_total",
		Help: "Count of complaint status/assignment updates",
	})

	progressPhotosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "civictrack_progress_photos_total",
		Help: "Count of progress photos appended",
	})

	statsRecomputesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "civictrack_stats_recomputes_total",
		Help: "Count of performance stat recomputations by source",
	}, []string{"source"})

	complaintsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "civictrack_complaints",
		Help: "Number of complaints by status (refreshed by the stats worker)",
	}, []string{"status"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveLogin records a login attempt with a result label.
func ObserveLogin(result string) {
	loginsTotal.WithLabelValues(result).Inc()
}

// ObserveComplaintCreated increments the intake counter for a category.
func ObserveComplaintCreated(category string) {
	complaintsCreatedTotal.WithLabelValues(category).Inc()
}

// ObserveComplaintUpdate increments the update counter.
func ObserveComplaintUpdate() {
	complaintUpdatesTotal.Inc()
}

// ObserveProgressPhoto increments the photo append counter.
func ObserveProgressPhoto() {
	progressPhotosTotal.Inc()
}

// ObserveStatsRecompute records a stats recomputation by source
// ("on_demand" or "background").
func ObserveStatsRecompute(source string) {
	statsRecomputesTotal.WithLabelValues(source).Inc()
}

// SetComplaintsByStatus sets the complaint gauge for one status.
func SetComplaintsByStatus(status string, count int) {
	if count < 0 {
		count = 0
	}
	complaintsByStatus.WithLabelValues(status).Set(float64(count))
}
