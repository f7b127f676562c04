package workers

import (
	"context"
	"log/slog"
	"time"

	"chat-mesh/contract"
	"chat-mesh/domain/event"
	"chat-mesh/observability"
	"chat-mesh/repositories"
)

// DeliveryWorker simulates push delivery for a session that has no real
// transport. On each tick it rescans the shared store for unread messages
// and ringing calls addressed to the session user within a recency window
// and replays them through the local bus. Re-delivery of call requests is
// tolerated downstream; messages are flagged read so they replay once.
type DeliveryWorker struct {
	log      *slog.Logger
	userID   string
	bus      contract.Publisher
	messages repositories.IMessageRepository
	calls    repositories.ICallRepository
	tracker  *observability.Tracker

	interval   time.Duration
	msgWindow  time.Duration
	callWindow time.Duration
}

func NewDeliveryWorker(
	log *slog.Logger,
	userID string,
	bus contract.Publisher,
	messages repositories.IMessageRepository,
	calls repositories.ICallRepository,
	tracker *observability.Tracker,
	interval, msgWindow, callWindow time.Duration,
) *DeliveryWorker {
	return &DeliveryWorker{
		log:        log,
		userID:     userID,
		bus:        bus,
		messages:   messages,
		calls:      calls,
		tracker:    tracker,
		interval:   interval,
		msgWindow:  msgWindow,
		callWindow: callWindow,
	}
}

func (w *DeliveryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Stopping delivery worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *DeliveryWorker) tick(ctx context.Context) {
	w.deliverMessages(ctx)
	w.deliverCallRequests(ctx)
}

// deliverMessages publishes every unread recent message for this user,
// then persists the read flags in one batch. A tick that lost its session
// mid-flight aborts before writing anything.
func (w *DeliveryWorker) deliverMessages(ctx context.Context) {
	pending, err := w.messages.UnreadRecent(w.userID, w.msgWindow)
	if err != nil {
		w.log.Warn("Inbox scan failed, retrying next tick", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	for _, m := range pending {
		w.bus.Publish(event.NewMessage(m))
		w.tracker.IncrMessagesDelivered()
	}

	// Stale tick: the session was disconnected while publishing, leave
	// the read flags untouched.
	if ctx.Err() != nil {
		return
	}

	if _, err := w.messages.MarkRead(pending); err != nil {
		w.log.Warn("Failed to persist read flags", "error", err)
	}
}

func (w *DeliveryWorker) deliverCallRequests(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ringing, err := w.calls.RingingRecent(w.userID, w.callWindow)
	if err != nil {
		w.log.Warn("Call scan failed, retrying next tick", "error", err)
		return
	}
	for _, c := range ringing {
		w.bus.Publish(event.NewCall(event.CallRequestType, c.CallerID, c.ReceiverID, c))
	}
}
