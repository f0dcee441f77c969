// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics exposes the Prometheus counters/histograms/gauges used
// across the importer topology. It is the aggregation-domain adaptation of
// the teacher's internal/ratelimiter/telemetry/churn/prom_counters.go:
// instead of naive-write / churn-ratio KPIs for a rate limiter, these track
// messages parsed, ticks processed, flush latency, writer/updater queue
// depth and retry counts for the ingestion pipeline. Like the teacher's
// module, every function here is a cheap no-op-shaped call safe to use on
// hot paths; registration happens once in init().
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logjam_messages_received_total",
		Help: "Messages fanned in by the subscriber, by topic prefix.",
	}, []string{"topic"})

	MessagesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logjam_messages_dropped_total",
		Help: "Messages dropped during parsing, by reason.",
	}, []string{"reason"})

	RequestsInteresting = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logjam_requests_interesting_total",
		Help: "Requests forwarded to the request-writer pool as interesting.",
	})

	TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "logjam_tick_duration_seconds",
		Help:    "Wall-clock duration of one controller tick.",
		Buckets: prometheus.DefBuckets,
	})

	FlushLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "logjam_flush_latency_seconds",
		Help:    "Time to apply one batch of increments to the document store.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"}) // totals|minutes|quants|requests|js_exceptions|events

	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "logjam_queue_depth",
		Help: "Current depth of an inter-worker queue.",
	}, []string{"queue"})

	StorageRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logjam_storage_retries_total",
		Help: "Storage-lock retries, by worker pool.",
	}, []string{"pool"})

	StorageErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "logjam_storage_errors_total",
		Help: "Storage writes that failed (after any lock-conflict retries) and were logged and dropped, by pool.",
	}, []string{"pool"})

	IndicesCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logjam_indices_created_total",
		Help: "Per-database index sets created by the indexer.",
	})

	ConfigReloadChecks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logjam_config_reload_checks_total",
		Help: "Number of times the controller re-hashed the config file.",
	})
)

func init() {
	prometheus.MustRegister(
		MessagesReceived,
		MessagesDropped,
		RequestsInteresting,
		TickDuration,
		FlushLatency,
		QueueDepth,
		StorageRetries,
		StorageErrors,
		IndicesCreated,
		ConfigReloadChecks,
	)
}

// Serve starts a dedicated /metrics HTTP endpoint in the background. Safe
// to call with an empty addr (no-op), matching the teacher's
// startMetricsEndpoint opt-in behavior.
func Serve(addr string) {
	if addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		_ = server.ListenAndServe()
	}()
}
