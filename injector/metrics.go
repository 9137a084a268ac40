package injector

import (
	"github.com/prometheus/client_golang/prometheus"
)

// metrics counts container builds and cache traffic.
type metrics struct {
	builds        prometheus.Counter
	buildFailures prometheus.Counter
	cacheHits     prometheus.Counter
	baselineHits  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		builds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nasc",
			Subsystem: "injector",
			Name:      "builds_total",
			Help:      "Containers built for distinct module sets, baseline included.",
		}),
		buildFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nasc",
			Subsystem: "injector",
			Name:      "build_failures_total",
			Help:      "Container builds that failed with a configuration error.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nasc",
			Subsystem: "injector",
			Name:      "cache_hits_total",
			Help:      "Resolutions answered by an already cached container.",
		}),
		baselineHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "nasc",
			Subsystem: "injector",
			Name:      "baseline_resolutions_total",
			Help:      "Resolutions with no extra modules, answered by the baseline container.",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.builds, m.buildFailures, m.cacheHits, m.baselineHits} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}
