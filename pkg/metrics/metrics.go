package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	InFlightGauge   prometheus.Gauge

	ConsultationsCreatedTotal prometheus.Counter
	ScopeEmptyTotal           prometheus.Counter

	UploadsTotal        *prometheus.CounterVec
	UploadBytesTotal    prometheus.Counter
	UploadDuration      prometheus.Histogram
	VideoResponsesTotal *prometheus.CounterVec
	VideoBytesServed    prometheus.Counter
	StorageUnavailable  prometheus.Counter

	ReconcileFindings *prometheus.CounterVec

	AuditEntriesTotal  prometheus.Counter
	AuditBufferDropped prometheus.Counter
}

// NewCollector registers the collectors on reg. The process registry is
// prometheus.DefaultRegisterer; tests pass a fresh prometheus.NewRegistry().
func NewCollector(serviceName string, reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by method, path, and status code.",
		}, []string{"method", "path", "status"}),

		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "path", "status"}),

		InFlightGauge: f.NewGauge(prometheus.GaugeOpts{
			Namespace: serviceName,
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),

		ConsultationsCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "consultations_created_total",
			Help:      "Total consultation records created.",
		}),

		ScopeEmptyTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "clinical",
			Name:      "scope_empty_total",
			Help:      "List requests answered empty because the caller has no location.",
		}),

		UploadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "video",
			Name:      "uploads_total",
			Help:      "Video uploads by outcome.",
		}, []string{"outcome"}),

		UploadBytesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "video",
			Name:      "upload_bytes_total",
			Help:      "Bytes committed to the storage share.",
		}),

		UploadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: serviceName,
			Subsystem: "video",
			Name:      "upload_duration_seconds",
			Help:      "Time from first byte to rename for successful uploads.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),

		VideoResponsesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "video",
			Name:      "responses_total",
			Help:      "Video fetches by status code.",
		}, []string{"status"}),

		VideoBytesServed: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "video",
			Name:      "bytes_served_total",
			Help:      "Video bytes written to clients.",
		}),

		StorageUnavailable: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "storage",
			Name:      "unavailable_total",
			Help:      "Operations that found the storage root unreachable. Alert if non-zero.",
		}),

		ReconcileFindings: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "reconcile",
			Name:      "findings_total",
			Help:      "Inconsistencies found between the video tree and the metadata store.",
		}, []string{"kind"}),

		AuditEntriesTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "entries_total",
			Help:      "Total audit log entries written.",
		}),

		AuditBufferDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: serviceName,
			Subsystem: "audit",
			Name:      "buffer_dropped_total",
			Help:      "Audit entries dropped due to full buffer. Alert if non-zero.",
		}),
	}
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
