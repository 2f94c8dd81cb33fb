package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "snapshots_total",
			Namespace: ColmenaNamespace,
			Help:      "The total number of snapshots received per subscription channel.",
		},
		[]string{"channel", "exists"},
	)

	TransportErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "transport_errors_total",
			Namespace: ColmenaNamespace,
			Help:      "The total number of subscription errors reported by the remote source.",
		},
		[]string{"channel"},
	)

	RejectedSamplesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "rejected_samples_total",
			Namespace: ColmenaNamespace,
			Help:      "Historic entries excluded during validation.",
		},
		[]string{"reason"},
	)

	HistoryLength = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "history_length",
		Namespace: ColmenaNamespace,
		Help:      "Number of samples currently held in the history window.",
	})

	CurrentStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name:      "current_status",
		Namespace: ColmenaNamespace,
		Help:      "Classified status of the latest reading (0 normal, 1 warning, 2 error).",
	})

	CurrentValue = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name:      "current_value",
			Namespace: ColmenaNamespace,
			Help:      "Latest normalized value per metric.",
		},
		[]string{"metric"},
	)

	StateReplacementsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name:      "state_replacements_total",
		Namespace: ColmenaNamespace,
		Help:      "The total number of dashboard state replacements.",
	})
)
