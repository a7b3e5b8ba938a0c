// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/olegiv/eventdesk/internal/query"
)

var statuses = []query.Status{
	query.StatusUnloaded,
	query.StatusLoading,
	query.StatusSuccess,
	query.StatusError,
}

// queryCollector reports query cache state at scrape time.
type queryCollector struct {
	stats func() []query.KeyStats

	status      *prometheus.Desc
	version     *prometheus.Desc
	subscribers *prometheus.Desc
	inFlight    *prometheus.Desc
	dropped     *prometheus.Desc
	sharedReads *prometheus.Desc
}

// RegisterQueryStats exports the per-key state of the query cache.
func (m *Metrics) RegisterQueryStats(stats func() []query.KeyStats) error {
	labels := []string{"key"}
	return m.registry.Register(&queryCollector{
		stats: stats,
		status: prometheus.NewDesc(namespace+"_query_status",
			"1 for the current status of a collection.", []string{"key", "status"}, nil),
		version: prometheus.NewDesc(namespace+"_query_snapshot_version",
			"Snapshots applied for a collection.", labels, nil),
		subscribers: prometheus.NewDesc(namespace+"_query_subscribers",
			"Active listeners of a collection.", labels, nil),
		inFlight: prometheus.NewDesc(namespace+"_query_mutations_in_flight",
			"Mutations awaiting the store.", labels, nil),
		dropped: prometheus.NewDesc(namespace+"_query_dropped_results_total",
			"Fetch results discarded because a newer fetch was issued.", labels, nil),
		sharedReads: prometheus.NewDesc(namespace+"_query_shared_reads_total",
			"Snapshot reads served by a concurrent reader's backend call.", labels, nil),
	})
}

func (c *queryCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.status
	ch <- c.version
	ch <- c.subscribers
	ch <- c.inFlight
	ch <- c.dropped
	ch <- c.sharedReads
}

func (c *queryCollector) Collect(ch chan<- prometheus.Metric) {
	for _, s := range c.stats() {
		key := string(s.Key)
		for _, st := range statuses {
			v := 0.0
			if st.String() == s.Status {
				v = 1
			}
			ch <- prometheus.MustNewConstMetric(c.status, prometheus.GaugeValue, v, key, st.String())
		}
		ch <- prometheus.MustNewConstMetric(c.version, prometheus.GaugeValue, float64(s.Version), key)
		ch <- prometheus.MustNewConstMetric(c.subscribers, prometheus.GaugeValue, float64(s.Subscribers), key)
		ch <- prometheus.MustNewConstMetric(c.inFlight, prometheus.GaugeValue, float64(s.InFlight), key)
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped), key)
		ch <- prometheus.MustNewConstMetric(c.sharedReads, prometheus.CounterValue, float64(s.SharedReads), key)
	}
}
