// Warden - Server-Side Anti-Cheat Detection Substrate
// Copyright 2026 Warden Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wardenhq/warden

// Package metrics defines the Prometheus instrumentation for Warden:
// dispatch pipeline throughput, executor faults, worker pool size,
// connected players, ingest traffic, and error sink activity.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Dispatch pipeline metrics.

	DispatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_dispatches_total",
			Help: "Total number of packet dispatches by packet kind",
		},
		[]string{"kind"},
	)

	DispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "warden_dispatch_duration_seconds",
			Help:    "Duration of packet dispatches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	ExecutorFaults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_executor_faults_total",
			Help: "Total number of executor faults caught at the dispatch boundary",
		},
		[]string{"executor"},
	)

	DispatchHalts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_dispatch_halts_total",
			Help: "Total number of dispatches halted by an executor",
		},
		[]string{"executor"},
	)

	PoolWorkers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_pool_workers",
			Help: "Current number of live dispatch pool workers",
		},
	)

	PoolTasksQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_pool_tasks_total",
			Help: "Total number of tasks submitted to the dispatch pool",
		},
	)

	// Player registry metrics.

	ConnectedPlayers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_connected_players",
			Help: "Current number of connected players",
		},
	)

	SnapshotCommits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_snapshot_commits_total",
			Help: "Total number of player state snapshot commits",
		},
	)

	// Ingest metrics.

	IngestFrames = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_ingest_frames_total",
			Help: "Total number of ingest frames by outcome",
		},
		[]string{"outcome"}, // "dispatched", "decode_error", "rate_limited", "unknown_player"
	)

	IngestConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "warden_ingest_connections",
			Help: "Current number of decoder ingest connections",
		},
	)

	// Error sink metrics.

	ErrorsReported = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_errors_reported_total",
			Help: "Total number of errors delivered to the error sink",
		},
	)

	ErrorWebhookDeliveries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_error_webhook_deliveries_total",
			Help: "Total number of error webhook delivery attempts by outcome",
		},
		[]string{"outcome"}, // "ok", "failed", "breaker_open"
	)

	// Tunable binding metrics.

	BindingReads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "warden_binding_reads_total",
			Help: "Total number of tunable binding reads by outcome",
		},
		[]string{"outcome"}, // "live", "cached", "failed"
	)

	BindingWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "warden_binding_writes_total",
			Help: "Total number of tunable binding writes",
		},
	)
)
