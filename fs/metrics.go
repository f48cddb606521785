package fs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	fsPrometheusMetrics sync.Once

	fsOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "filestorage",
			Subsystem: "fs",
			Name:      "operations_total",
			Help:      "Number of filesystem operations performed, by operation and result.",
		},
		[]string{"operation", "result"})
	fsOpenHandles = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "filestorage",
			Subsystem: "fs",
			Name:      "open_handles",
			Help:      "Number of descriptors currently bound in the open-handle table.",
		})
)

func registerMetrics() {
	fsPrometheusMetrics.Do(func() {
		prometheus.MustRegister(fsOperations)
		prometheus.MustRegister(fsOpenHandles)
	})
}

func countOp(op string, err error) {
	fsOperations.WithLabelValues(op, errClass(err)).Inc()
}
