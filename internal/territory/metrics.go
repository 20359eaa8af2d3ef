package territory

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	subdivisionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "polity_subdivisions_created_total",
		Help: "Subdivisions successfully carved",
	})

	subdivisionRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polity_subdivisions_rejected_total",
		Help: "Subdivision attempts rejected, by reason",
	}, []string{"reason"})

	subdivisionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polity_subdivision_duration_seconds",
		Help:    "Time spent holding the parent lock while carving",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	})

	joinDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polity_join_all_duration_seconds",
		Help:    "Time to aggregate a division subtree",
		Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1},
	})

	joinSubtreeSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "polity_join_all_subtree_size",
		Help:    "Divisions visited per aggregation",
		Buckets: []float64{1, 10, 100, 1000, 10000},
	})

	transfersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "polity_territory_transfers_total",
		Help: "Territory transfers between governments, by kind and result",
	}, []string{"kind", "result"})
)
