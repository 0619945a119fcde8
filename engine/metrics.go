package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics instruments dashboard execution.
type Metrics struct {
	dashboards    *prometheus.CounterVec
	panelDuration *prometheus.HistogramVec
	panelFailures *prometheus.CounterVec
	filteredRows  *prometheus.HistogramVec
}

// NewMetrics creates executor metrics. A nil registerer leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		dashboards: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "factboard",
			Name:      "dashboards_total",
			Help:      "Total number of dashboards executed.",
		}, []string{"dataset"}),
		panelDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factboard",
			Name:      "panel_duration_seconds",
			Help:      "Time spent computing one KPI or panel.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
		}, []string{"dataset", "recipe"}),
		panelFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "factboard",
			Name:      "panel_failures_total",
			Help:      "Total number of KPIs and panels that failed.",
		}, []string{"dataset", "recipe"}),
		filteredRows: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "factboard",
			Name:      "filtered_rows",
			Help:      "Rows left after applying the filter request.",
			Buckets:   prometheus.ExponentialBuckets(1, 10, 7),
		}, []string{"dataset"}),
	}
}
