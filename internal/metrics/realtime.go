package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Realtime broadcast metrics
var (
	// RealtimeRooms tracks the number of rooms with at least one subscriber
	RealtimeRooms = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_rooms",
			Help:      "Number of comment rooms with at least one subscriber",
		},
	)

	// RealtimeSubscriptions tracks active (connection, room) pairs
	RealtimeSubscriptions = promauto.With(Registry).NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "realtime_subscriptions",
			Help:      "Number of active (connection, room) subscriptions",
		},
	)

	// RealtimeEventsPublished counts events handed to the dispatcher
	RealtimeEventsPublished = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_published_total",
			Help:      "Total number of events published to rooms",
		},
		[]string{"kind"},
	)

	// RealtimeEventsDelivered counts per-subscriber deliveries
	RealtimeEventsDelivered = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_delivered_total",
			Help:      "Total number of events enqueued to subscribers",
		},
		[]string{"kind"},
	)

	// RealtimeEventsDropped counts deliveries abandoned because the
	// subscriber was closed or too slow
	RealtimeEventsDropped = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_events_dropped_total",
			Help:      "Total number of events dropped for unreachable subscribers",
		},
		[]string{"kind"},
	)
)
