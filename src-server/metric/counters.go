package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide counters, registered once at import. Unlike the latency
// gauges these never unregister: totals should survive a graceful
// shutdown broadcast for as long as the process lives.
var (
	CalendarsParsedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icsplit_calendars_parsed_total",
		Help: "How many calendar files have been parsed",
	})

	SplitJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "icsplit_split_jobs_total",
		Help: "How many split jobs have run, by mode and surface",
	}, []string{"mode", "source"})

	SplitOutputsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icsplit_split_outputs_total",
		Help: "How many .ics output files have been produced",
	})

	SplitOversizeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "icsplit_split_oversize_total",
		Help: "How many size-mode outputs exceeded the requested limit because a single event was bigger than the limit",
	})
)
