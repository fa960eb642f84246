package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "grcbook"

type metrics struct {
	importRows     *prometheus.CounterVec
	importBlocks   *prometheus.CounterVec
	importDuration prometheus.Histogram

	digestScanned *prometheus.CounterVec
	digestSent    *prometheus.CounterVec
	digestPending prometheus.Gauge
}

var metricsSingleton = sync.OnceValue(func() *metrics {
	return &metrics{
		importRows: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_rows_total",
			Help:      "Total number of imported rows by object type and disposition.",
		}, []string{"object_type", "disposition"}),
		importBlocks: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "import_blocks_total",
			Help:      "Total number of imported blocks by object type and result.",
		}, []string{"object_type", "result"}),
		importDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "import_duration_seconds",
			Help:      "Duration of whole file imports.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		digestScanned: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_notifications_created_total",
			Help:      "Total number of pending notifications created by digest scans.",
		}, []string{"kind"}),
		digestSent: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "digest_messages_total",
			Help:      "Total number of digest messages by delivery result.",
		}, []string{"result"}),
		digestPending: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "digest_pending",
			Help:      "Number of pending notifications after the last digest run.",
		}),
	}
})

func get() *metrics {
	return metricsSingleton()
}

// ObserveImportRows counts n rows of an import with the same disposition
func ObserveImportRows(objectType, disposition string, n int) {
	if n <= 0 {
		return
	}
	get().importRows.WithLabelValues(objectType, disposition).Add(float64(n))
}

// ObserveImportBlock counts one block. result is "ok" or "error".
func ObserveImportBlock(objectType, result string) {
	get().importBlocks.WithLabelValues(objectType, result).Inc()
}

// ObserveImportDuration records how long a file import took
func ObserveImportDuration(d time.Duration) {
	get().importDuration.Observe(d.Seconds())
}

// ObserveNotificationCreated counts a notification created by a digest scan
func ObserveNotificationCreated(kind string) {
	get().digestScanned.WithLabelValues(kind).Inc()
}

// ObserveDigestMessage counts one digest delivery. result is "sent" or "failed".
func ObserveDigestMessage(result string) {
	get().digestSent.WithLabelValues(result).Inc()
}

// SetDigestPending records the size of the pending set
func SetDigestPending(n int) {
	get().digestPending.Set(float64(n))
}

// Handler serves the default registry in the Prometheus text format
func Handler() http.Handler {
	return promhttp.Handler()
}
