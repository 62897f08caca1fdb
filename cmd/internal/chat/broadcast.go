package chat

import (
	"encoding/json"
	"log/slog"
)

// Dispatcher fans an outbound frame out to every live member of a
// conversation, sender included.
//
// Delivery is best effort per member: a member whose queue is full or that is
// shutting down is logged and skipped, and never aborts delivery to the rest.
type Dispatcher struct {
	log      *slog.Logger
	registry *Registry
	metrics  *Metrics
}

// NewDispatcher constructs a Dispatcher over the given registry.
func NewDispatcher(log *slog.Logger, registry *Registry, metrics *Metrics) *Dispatcher {
	return &Dispatcher{log: log, registry: registry, metrics: metrics}
}

// Deliver serializes frame once and enqueues it to every member present in
// the registry snapshot taken at call time.
func (d *Dispatcher) Deliver(key ConversationKey, frame any) {
	payload, err := json.Marshal(frame)
	if err != nil {
		// Outbound frames are plain structs; this only fires on a programming error.
		d.log.Error("broadcast.marshal.fail", "conversation", key.String(), "err", err)
		return
	}

	members := d.registry.Snapshot(key)
	d.metrics.broadcastStarted()

	for _, m := range members {
		if m.enqueue(payload) {
			d.metrics.frameDelivered()
			continue
		}
		d.metrics.deliveryDropped()
		d.log.Info("broadcast.drop",
			"conversation", key.String(),
			"session_id", m.SessionID,
			"user_id", m.UserID,
		)
	}
}
