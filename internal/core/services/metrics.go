package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	entitiesGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tezui_store_entities",
			Help: "Number of entities held in the store",
		},
		[]string{"type"},
	)

	// source is cache, backend or repository
	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tezui_store_fetches_total",
			Help: "Total number of entity loads by source and result",
		},
		[]string{"type", "source", "result"},
	)

	resolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tezui_store_resolve_duration_seconds",
			Help:    "Time to resolve an async relationship",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"relationship", "result"},
	)
)

func observeResolve(relationship string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	resolveDuration.WithLabelValues(relationship, result).Observe(time.Since(start).Seconds())
}
