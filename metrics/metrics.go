/*
 * Copyright (c) 2018 The Go Authors. All rights reserved.
 * Use of this source code is governed by a BSD-style license that can be found in the LICENSE file.
 */

// Package metrics exposes the server's operational counters through
// Prometheus. There is no teacher equivalent (badu-http predates
// Prometheus-style metrics); grounded instead on nabbar-golib's
// prometheus package's pattern of one typed wrapper per metric,
// registered against a dedicated registry rather than the global
// DefaultRegisterer, so an embedder can mount more than one server's
// metrics side by side.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics bundles the gauges/counters/histograms spec.md's concurrency
// model implies: the open-connection counter (§5 "an atomic integer",
// exported here as a gauge too), parser-rejection counts by HTTP
// status code, request latency, and context-pool occupancy.
type Metrics struct {
	Registry *prometheus.Registry

	OpenConnections prometheus.Gauge
	PooledContexts  prometheus.Gauge
	RequestDuration prometheus.Histogram
	ParserRejections *prometheus.CounterVec
	ConnectionsTotal prometheus.Counter
}

// New builds a Metrics bundle registered against a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpd",
			Name:      "open_connections",
			Help:      "Number of currently open client connections.",
		}),
		PooledContexts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "httpd",
			Name:      "pooled_contexts",
			Help:      "Number of HttpContext values currently idle in the context pool.",
		}),
		RequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "httpd",
			Name:      "request_duration_seconds",
			Help:      "Time from request-line parse to response flush.",
			Buckets:   prometheus.DefBuckets,
		}),
		ParserRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "httpd",
			Name:      "parser_rejections_total",
			Help:      "Requests rejected by the parser, labeled by HTTP status.",
		}, []string{"status"}),
		ConnectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "httpd",
			Name:      "connections_total",
			Help:      "Total accepted connections across all listeners.",
		}),
	}
	reg.MustRegister(m.OpenConnections, m.PooledContexts, m.RequestDuration, m.ParserRejections, m.ConnectionsTotal)
	return m
}
