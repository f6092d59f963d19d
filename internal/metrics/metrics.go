// Package metrics exposes Prometheus metrics for the porystore service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricsOnce ensures metrics are only initialized once.
var metricsOnce sync.Once

// metricsInstance is the singleton instance of service metrics.
var metricsInstance *Metrics

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Upload/download volume
	Uploads   prometheus.Counter
	Downloads prometheus.Counter

	// Deletion lifecycle. PurgeFailures is the operator signal for creatures
	// left stuck in pending deletion after a failed purge.
	SoftDeletes   prometheus.Counter
	Undeletes     prometheus.Counter
	Purges        prometheus.Counter
	PurgeFailures prometheus.Counter
}

// Init initializes all service metrics.
// Metrics are only registered once; subsequent calls return the same instance.
// Pass a registry to register metrics with that registry (for exposure on a
// /metrics endpoint). If nil, uses the default Prometheus registry.
func Init(registry prometheus.Registerer) *Metrics {
	metricsOnce.Do(func() {
		if registry == nil {
			registry = prometheus.DefaultRegisterer
		}
		metricsInstance = &Metrics{
			Uploads: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "porystore_uploads_total",
				Help: "Number of creatures uploaded",
			}),
			Downloads: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "porystore_downloads_total",
				Help: "Number of raw save downloads served",
			}),
			SoftDeletes: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "porystore_soft_deletes_total",
				Help: "Number of creatures marked for deletion",
			}),
			Undeletes: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "porystore_undeletes_total",
				Help: "Number of pending deletions canceled",
			}),
			Purges: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "porystore_purges_total",
				Help: "Number of creatures permanently purged",
			}),
			PurgeFailures: promauto.With(registry).NewCounter(prometheus.CounterOpts{
				Name: "porystore_purge_failures_total",
				Help: "Number of delayed purges that failed and left a creature pending",
			}),
		}
	})
	return metricsInstance
}
