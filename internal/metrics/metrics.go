package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Сессии и комнаты
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_ws_sessions_active",
			Help: "Currently connected websocket sessions",
		},
	)

	RoomJoins = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_room_joins_total",
			Help: "Total room join actions",
		},
	)

	// Relay
	MessagesRelayed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_messages_relayed_total",
			Help: "Messages persisted and broadcast",
		},
	)

	ActionsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_actions_dropped_total",
			Help: "Inbound actions dropped without broadcast",
		},
		[]string{"reason"}, // validation, not_joined, persistence, closed
	)

	BroadcastRecipients = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_broadcast_recipients",
			Help:    "Local sessions reached per broadcast",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	ClusterPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chat_cluster_publish_failures_total",
			Help: "Failed Redis publishes of room broadcasts",
		},
	)
)
