package workers

import (
	"context"
	"log/slog"

	"chat-mesh/contract"
	"chat-mesh/domain/event"
	"chat-mesh/observability"
	"chat-mesh/repositories"
)

// RelayWorker consumes the shared broadcast slot and redispatches foreign
// events on the local bus. Events emitted by this session are never echoed
// back, and events addressed to another user are dropped.
type RelayWorker struct {
	log     *slog.Logger
	userID  string
	bus     contract.Publisher
	slot    *repositories.BroadcastSlot
	tracker *observability.Tracker
}

func NewRelayWorker(
	log *slog.Logger,
	userID string,
	bus contract.Publisher,
	slot *repositories.BroadcastSlot,
	tracker *observability.Tracker,
) *RelayWorker {
	return &RelayWorker{log: log, userID: userID, bus: bus, slot: slot, tracker: tracker}
}

func (w *RelayWorker) Run(ctx context.Context) error {
	err := w.slot.Watch(ctx, w.handle)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

func (w *RelayWorker) handle(e event.Event) {
	if e.SenderID == w.userID {
		return
	}
	if e.ReceiverID != "" && e.ReceiverID != w.userID {
		return
	}
	w.tracker.IncrEventsRelayed()
	w.bus.Publish(e)
}
