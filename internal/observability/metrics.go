package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrors counts Redis errors by operation type.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// ActiveWebSockets is the gauge of total WebSocket connections.
	ActiveWebSockets = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "steeple_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// BadgesGranted counts auto-granted badges by badge key.
	BadgesGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_badges_granted_total",
		Help: "Total number of badges granted by badge key",
	}, []string{"badge_key"})

	// AutobansTriggered counts system-initiated bans.
	AutobansTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steeple_autobans_total",
		Help: "Total number of members banned by the autoban scorer",
	})

	// AutobanScoreHits counts score increments by signal.
	AutobanScoreHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_autoban_score_hits_total",
		Help: "Total autoban score increments by signal",
	}, []string{"signal"})

	// NotificationsCreated counts notification rows written by audience.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_notifications_created_total",
		Help: "Total notifications created by audience (member or admin)",
	}, []string{"audience"})

	// NotificationsSuppressed counts member notifications skipped by preference.
	NotificationsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_notifications_suppressed_total",
		Help: "Total member notifications suppressed by notification settings",
	}, []string{"type"})

	// SideEffectErrors counts swallowed errors in best-effort side channels.
	SideEffectErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_side_effect_errors_total",
		Help: "Total errors swallowed by best-effort engagement side effects",
	}, []string{"component"})

	// AutomationEnqueued counts drip queue entries created by trigger type.
	AutomationEnqueued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_automation_enqueued_total",
		Help: "Total email automation queue entries created by trigger type",
	}, []string{"trigger"})

	// AutomationDispatched counts queue entries dispatched by result.
	AutomationDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steeple_automation_dispatched_total",
		Help: "Total email automation queue entries dispatched by result",
	}, []string{"result"})
)
