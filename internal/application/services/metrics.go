package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	interceptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_interceptions_total",
			Help: "Intercepted requests by route class and serving outcome",
		},
		[]string{"class", "outcome"},
	)

	queueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "offline_write_queue_depth",
			Help: "Pending mutating requests awaiting replay",
		},
	)

	syncReplaysTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "offline_sync_replays_total",
			Help: "Queued action replays by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(interceptionsTotal)
	prometheus.MustRegister(queueDepth)
	prometheus.MustRegister(syncReplaysTotal)
}

// Serving outcomes for the interception counter.
const (
	outcomeNetwork        = "network"
	outcomeCache          = "cache"
	outcomeOfflineStorage = "offline_storage"
	outcomePlaceholder    = "placeholder"
	outcomeQueued         = "queued"
	outcomePassthrough    = "passthrough"
)
