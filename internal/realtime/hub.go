package realtime

import (
	"encoding/json"

	"github.com/rs/zerolog"

	"github.com/inkwell-blog/server/internal/metrics"
)

// Hub is the broadcast dispatcher. Publish delivers an event to every
// connection currently subscribed to the room; delivery is best-effort per
// connection, and a single unreachable subscriber never surfaces an error
// to the publisher.
type Hub struct {
	registry *Registry
	logger   zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		registry: NewRegistry(),
		logger:   logger.With().Str("component", "realtime").Logger(),
	}
}

// Join subscribes the connection to the article's room. Reading a comment
// stream is public; no authentication gates this.
func (h *Hub) Join(c *Client, articleID string) {
	h.registry.Join(c, articleID)
	h.updateGauges()
}

// Leave unsubscribes the connection from the article's room.
func (h *Hub) Leave(c *Client, articleID string) {
	h.registry.Leave(c, articleID)
	h.updateGauges()
}

// Disconnect removes the connection from every room and stops its pumps.
// Invoked once by the read pump when the transport drops.
func (h *Hub) Disconnect(c *Client) {
	h.registry.Drop(c)
	c.shutdown()
	h.updateGauges()
}

// Publish delivers the event to the room's current members. Sequential
// publishes from one flow reach each still-connected subscriber in call
// order. A subscriber whose buffer is saturated is disconnected instead of
// blocking everyone else.
func (h *Hub) Publish(roomKey string, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("kind", event.Kind).Msg("marshal event")
		return
	}

	metrics.RealtimeEventsPublished.WithLabelValues(event.Kind).Inc()

	for _, c := range h.registry.Members(roomKey) {
		if c.enqueue(payload) {
			metrics.RealtimeEventsDelivered.WithLabelValues(event.Kind).Inc()
			continue
		}
		metrics.RealtimeEventsDropped.WithLabelValues(event.Kind).Inc()
		h.logger.Warn().Str("room", roomKey).Msg("dropping slow or closed subscriber")
		h.Disconnect(c)
	}
}

// Members exposes the room snapshot for tests and diagnostics.
func (h *Hub) Members(roomKey string) []*Client {
	return h.registry.Members(roomKey)
}

func (h *Hub) updateGauges() {
	metrics.RealtimeRooms.Set(float64(h.registry.RoomCount()))
	metrics.RealtimeSubscriptions.Set(float64(h.registry.SubscriptionCount()))
}
