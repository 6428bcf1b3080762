// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "potatoserver"

// WebSocket connection metrics
var (
	// ConnectedClients tracks connections currently in the registry
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ws_connected_clients",
			Help:      "Number of WebSocket connections currently registered",
		},
	)

	// ConnectionsTotal counts connections accepted by the hub
	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_connections_total",
			Help:      "Total WebSocket connections accepted",
		},
	)

	// DisconnectsTotal counts connections removed from the registry by reason
	// (close_frame, transport_error, send_failure, shutdown)
	DisconnectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_disconnects_total",
			Help:      "Total WebSocket connections removed by reason",
		},
		[]string{"reason"},
	)

	// UpgradeRejectionsTotal counts requests to the upgrade path that never became connections
	UpgradeRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_upgrade_rejections_total",
			Help:      "Total rejected WebSocket upgrade requests by reason",
		},
		[]string{"reason"},
	)
)

// Frame and broadcast metrics
var (
	// FramesReceivedTotal counts inbound data frames by type (text, binary)
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_frames_received_total",
			Help:      "Total inbound WebSocket data frames by type",
		},
		[]string{"type"},
	)

	// FramesDroppedTotal counts inbound text frames that were not broadcast
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_frames_dropped_total",
			Help:      "Total inbound text frames discarded by reason",
		},
		[]string{"reason"},
	)

	// BroadcastsTotal counts broadcast operations
	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Total broadcast operations",
		},
	)

	// BroadcastDeliveriesTotal counts per-recipient delivery attempts by status (delivered, failed)
	BroadcastDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Total per-recipient broadcast delivery attempts by status",
		},
		[]string{"status"},
	)
)

// HTTP metrics
var (
	// HTTPRequestDuration tracks request latency by route template, method and status
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route", "method", "status"},
	)
)
