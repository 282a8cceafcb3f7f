// internal/messenger/metrics.go

package messenger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_messages_sent_total",
			Help: "Total number of messages appended to the ledger by senders",
		},
		[]string{"chat_type"},
	)

	mockRepliesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_mock_replies_total",
			Help: "Total number of simulated counterpart replies delivered",
		},
	)

	mockRepliesCancelled = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "messenger_mock_replies_cancelled_total",
			Help: "Total number of scheduled mock replies cancelled before firing",
		},
	)

	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messenger_ai_requests_total",
			Help: "Assistant calls by outcome",
		},
		[]string{"outcome"},
	)

	wsConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "messenger_ws_connections",
			Help: "Currently registered websocket clients",
		},
	)
)

func RecordMessageSent(chatType ChatType) {
	messagesSentTotal.WithLabelValues(string(chatType)).Inc()
}

func RecordMockReply() {
	mockRepliesTotal.Inc()
}

func RecordMockReplyCancelled() {
	mockRepliesCancelled.Inc()
}

func RecordAIRequest(outcome string) {
	aiRequestsTotal.WithLabelValues(outcome).Inc()
}
