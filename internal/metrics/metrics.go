package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ============================================
	// Engine operation metrics
	// ============================================
	OperationsCommitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_operations_committed_total",
			Help: "Total number of committed engine operations",
		},
		[]string{"kind"},
	)

	OperationsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_operations_rejected_total",
			Help: "Total number of rejected engine operations",
		},
		[]string{"kind", "reason"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backend_operation_duration_seconds",
			Help:    "Engine operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// ============================================
	// Reserve state metrics
	// ============================================
	TotalIssued = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_total_issued",
		Help: "Net issued supply currently backed by reserve (issued units)",
	})

	ReserveBalance = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "backend_reserve_balance",
			Help: "Vault collateral balance per leg (native units)",
		},
		[]string{"leg"},
	)

	AccruedFees = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_accrued_fees",
		Help: "Protocol fees accrued in the vault (issued units)",
	})

	VaultPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_vault_paused",
		Help: "Vault pause flag (1=paused, 0=active)",
	})

	GatewayPaused = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_gateway_paused",
		Help: "Gateway pause flag (1=paused, 0=active)",
	})

	// ============================================
	// Chain height feed metrics
	// ============================================
	ChainHeight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_chain_height",
		Help: "Latest observed block height",
	})

	ChainFeedErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_chain_feed_errors_total",
		Help: "Total number of height feed polling errors",
	})

	// ============================================
	// NATS metrics
	// ============================================
	NATSConnectionStatus = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_nats_connection_status",
		Help: "NATS connection status (1=connected, 0=disconnected)",
	})

	NATSMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_nats_messages_published_total",
			Help: "Total number of NATS messages published",
		},
		[]string{"subject"},
	)

	NATSPublishFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backend_nats_publish_failed_total",
			Help: "Total number of NATS publish failures",
		},
		[]string{"subject"},
	)

	// ============================================
	// WebSocket metrics
	// ============================================
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "backend_websocket_connections",
		Help: "Number of active WebSocket subscribers",
	})

	WebSocketMessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "backend_websocket_messages_sent_total",
		Help: "Total number of WebSocket messages pushed",
	})
)
