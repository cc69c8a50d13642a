package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	deletionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_convo_deletions_total",
			Help: "Cascading convo deletions by result (ok, not_found, failed).",
		},
		[]string{"result"},
	)

	deletionClosureSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threadline_convo_deletion_closure_size",
			Help:    "Number of convos removed by one cascading deletion.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	deletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "threadline_convo_deletion_duration_seconds",
			Help:    "Duration of cascading convo deletions.",
			Buckets: prometheus.DefBuckets,
		},
	)

	repairFixesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadline_repair_fixes_total",
			Help: "Inconsistencies fixed by the consistency sweep, by kind.",
		},
		[]string{"kind"},
	)
)
