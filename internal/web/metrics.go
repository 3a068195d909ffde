package web

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ado_pulse",
		Name:      "refreshes_total",
		Help:      "Refresh cycles by outcome.",
	}, []string{"outcome"})

	datasetRecords = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ado_pulse",
		Name:      "dataset_records",
		Help:      "Record count of the current dataset snapshot.",
	})

	malformedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "ado_pulse",
		Name:      "malformed_records_total",
		Help:      "Records dropped during normalization.",
	})
)
