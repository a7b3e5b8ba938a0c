// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package metrics exposes Prometheus collectors for store calls, collection
// fetches, mutations and log records.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/olegiv/eventdesk/internal/query"
	"github.com/olegiv/eventdesk/internal/store"
)

const namespace = "eventdesk"

// Metrics holds the application collectors and their registry.
type Metrics struct {
	registry *prometheus.Registry

	storeCalls *prometheus.HistogramVec
	fetches    *prometheus.HistogramVec
	mutations  *prometheus.CounterVec

	// LogRecords counts log records by level and category.
	LogRecords *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		storeCalls: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "call_duration_seconds",
			Help:      "Remote store call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "table", "outcome"}),
		fetches: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "fetch_duration_seconds",
			Help:      "Collection fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"key", "outcome"}),
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "query",
			Name:      "mutations_total",
			Help:      "Mutations issued through the query cache.",
		}, []string{"key", "op", "outcome"}),
		LogRecords: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "log_records_total",
			Help:      "Log records at or above the counted level.",
		}, []string{"level", "category"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.storeCalls,
		m.fetches,
		m.mutations,
		m.LogRecords,
	)
	return m
}

// Registry returns the registry backing Handler.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveStoreCall has the store.CallObserver signature.
func (m *Metrics) ObserveStoreCall(op, table string, elapsed time.Duration, err error) {
	m.storeCalls.WithLabelValues(op, table, Outcome(err)).Observe(elapsed.Seconds())
}

// QueryHooks returns hooks recording fetches and mutations.
func (m *Metrics) QueryHooks() query.Hooks {
	return query.Hooks{
		Fetched: func(key query.Key, elapsed time.Duration, err error) {
			m.fetches.WithLabelValues(string(key), Outcome(err)).Observe(elapsed.Seconds())
		},
		Mutated: func(key query.Key, op query.OpKind, err error) {
			m.mutations.WithLabelValues(string(key), string(op), Outcome(err)).Inc()
		},
	}
}

// Outcome labels err: "ok", the store error code, or "error".
func Outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if re, ok := store.AsRemoteError(err); ok && re.Code != "" {
		return re.Code
	}
	return "error"
}
