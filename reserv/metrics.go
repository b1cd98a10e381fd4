package reserv

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// / Metrics_t is a prometheus.Collector exposing the read-only
// / inspection surface of spec.md §6: cumulative broken/freed/
// / reclaimed counts, the current full-reservation count, and the
// / per-domain ACTIVE/INACTIVE partpop summary. It holds no state of
// / its own; every value is read live from the Manager_t it wraps.
type Metrics_t struct {
	manager *Manager_t

	broken    *prometheus.Desc
	freed     *prometheus.Desc
	reclaimed *prometheus.Desc
	full      *prometheus.Desc
	partpop   *prometheus.Desc
}

func newMetrics(m *Manager_t) *Metrics_t {
	return &Metrics_t{
		manager: m,
		broken: prometheus.NewDesc(
			"vmreserv_broken_total",
			"Cumulative count of reservations destroyed via Break.",
			nil, nil,
		),
		freed: prometheus.NewDesc(
			"vmreserv_freed_pages_total",
			"Cumulative count of base pages freed via FreePage.",
			nil, nil,
		),
		reclaimed: prometheus.NewDesc(
			"vmreserv_reclaimed_total",
			"Cumulative count of reservations destroyed via reclaim.",
			nil, nil,
		),
		full: prometheus.NewDesc(
			"vmreserv_full_reservations",
			"Current count of fully-populated reservations.",
			nil, nil,
		),
		partpop: prometheus.NewDesc(
			"vmreserv_partpop_reservations",
			"Current count of partially-populated reservations by LRU queue.",
			// The reservation level is always 0: this manager
			// implements a single level (spec.md §9 open question).
			[]string{"domain", "queue", "level"}, nil,
		),
	}
}

// / Describe implements prometheus.Collector.
func (mt *Metrics_t) Describe(ch chan<- *prometheus.Desc) {
	ch <- mt.broken
	ch <- mt.freed
	ch <- mt.reclaimed
	ch <- mt.full
	ch <- mt.partpop
}

// / Collect implements prometheus.Collector.
func (mt *Metrics_t) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(mt.broken, prometheus.CounterValue, float64(mt.manager.CumulativeBroken()))
	ch <- prometheus.MustNewConstMetric(mt.freed, prometheus.CounterValue, float64(mt.manager.CumulativeFreed()))
	ch <- prometheus.MustNewConstMetric(mt.reclaimed, prometheus.CounterValue, float64(mt.manager.CumulativeReclaimed()))
	ch <- prometheus.MustNewConstMetric(mt.full, prometheus.GaugeValue, float64(mt.manager.FullCount()))

	for domain := range mt.manager.domains {
		active, inactive := mt.manager.PartpopSummary(domain)
		domainLabel := strconv.Itoa(domain)
		ch <- prometheus.MustNewConstMetric(mt.partpop, prometheus.GaugeValue, float64(active), domainLabel, "active", "0")
		ch <- prometheus.MustNewConstMetric(mt.partpop, prometheus.GaugeValue, float64(inactive), domainLabel, "inactive", "0")
	}
}
