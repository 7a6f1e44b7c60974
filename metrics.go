// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package medallion

import "github.com/prometheus/client_golang/prometheus"

const (
	MetricRowsSourced     = "rows_sourced_total"
	MetricRowsDropped     = "rows_dropped_total"
	MetricWritesSucceeded = "writes_succeeded_total"
	MetricWritesFailed    = "writes_failed_total"
	MetricRunsCompleted   = "runs_completed_total"
	MetricRunsFailed      = "runs_failed_total"
)

var CounterRowsSourced = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "medallion",
		Name:      MetricRowsSourced,
		Help:      "Raw rows read from the tabular source.",
	},
)

var CounterRowsDropped = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "medallion",
		Name:      MetricRowsDropped,
		Help:      "Rows dropped during normalization.",
	},
)

var CounterWritesSucceeded = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "medallion",
		Name:      MetricWritesSucceeded,
		Help:      "Successful record writes, by layer table.",
	},
	[]string{
		"table",
	},
)

var CounterWritesFailed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "medallion",
		Name:      MetricWritesFailed,
		Help:      "Rejected record writes, by layer table.",
	},
	[]string{
		"table",
	},
)

var CounterRunsCompleted = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "medallion",
		Name:      MetricRunsCompleted,
		Help:      "Pipeline runs that reached the Completed state.",
	},
)

var CounterRunsFailed = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "medallion",
		Name:      MetricRunsFailed,
		Help:      "Pipeline runs that reached the Failed state.",
	},
)

func init() {
	prometheus.MustRegister(CounterRowsSourced)
	prometheus.MustRegister(CounterRowsDropped)
	prometheus.MustRegister(CounterWritesSucceeded)
	prometheus.MustRegister(CounterWritesFailed)
	prometheus.MustRegister(CounterRunsCompleted)
	prometheus.MustRegister(CounterRunsFailed)
}
