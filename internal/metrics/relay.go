package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RelayMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name:      "relay_messages_total",
			Namespace: ColmenaNamespace,
			Help:      "Device messages consumed by the relay, by outcome.",
		},
		[]string{"result"},
	)
)
