package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	CallsCreated       prometheus.Counter
	VendorErrors       *prometheus.CounterVec
	CallRefreshes      *prometheus.CounterVec
	HoldTimeSeconds    prometheus.Histogram
	HoldTimeUnresolved prometheus.Counter
	CacheHits          prometheus.Counter
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CallsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oilcall",
			Name:      "calls_created_total",
			Help:      "Outbound agent calls successfully placed.",
		}),
		VendorErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oilcall",
			Name:      "vendor_errors_total",
			Help:      "Failed requests to the calling platform by operation.",
		}, []string{"operation"}),
		CallRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oilcall",
			Name:      "call_refreshes_total",
			Help:      "Call status lookups by returned status.",
		}, []string{"status"}),
		HoldTimeSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "oilcall",
			Name:      "hold_time_seconds",
			Help:      "Measured hold time of completed calls.",
			Buckets:   []float64{0, 15, 30, 60, 120, 300, 600, 1200},
		}),
		HoldTimeUnresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oilcall",
			Name:      "hold_time_unresolved_total",
			Help:      "Completed calls whose transcript ended while on hold.",
		}),
		CacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "oilcall",
			Name:      "call_cache_hits_total",
			Help:      "Status lookups served from the terminal call cache.",
		}),
	}
	reg.MustRegister(
		m.CallsCreated,
		m.VendorErrors,
		m.CallRefreshes,
		m.HoldTimeSeconds,
		m.HoldTimeUnresolved,
		m.CacheHits,
	)
	return m
}
