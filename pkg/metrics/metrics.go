package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybase_permission_checks_total",
			Help: "Total number of workspace permission checks",
		},
		[]string{"permission", "result"},
	)

	// InvitationsIssued counts workspace invitations by invited role.
	InvitationsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybase_invitations_issued_total",
			Help: "Total number of workspace invitations issued",
		},
		[]string{"role"},
	)

	// ConversationActivations counts active-flag promotions triggered by user messages.
	ConversationActivations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "querybase_conversation_activations_total",
			Help: "Total number of conversation promote/demote transitions",
		},
	)

	// MessagesAppended counts persisted messages by role.
	MessagesAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "querybase_messages_appended_total",
			Help: "Total number of conversation messages appended",
		},
		[]string{"role"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "querybase_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
