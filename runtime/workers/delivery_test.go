package workers

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"chat-mesh/domain"
	"chat-mesh/domain/event"
	"chat-mesh/observability"
	"chat-mesh/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *badger.DB {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// busRecorder stands in for the session bus and keeps the published
// events for inspection.
type busRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

func (r *busRecorder) Publish(e event.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *busRecorder) ofType(t event.Type) []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func newDeliveryFixture(t *testing.T, db *badger.DB, userID string) (*DeliveryWorker, *busRecorder) {
	t.Helper()
	recorder := &busRecorder{}
	log := slog.Default()
	worker := NewDeliveryWorker(
		log,
		userID,
		recorder,
		repositories.NewMessageRepository(db, log, nil),
		repositories.NewCallRepository(db, log),
		observability.NewTracker(),
		20*time.Millisecond,
		5*time.Second,
		10*time.Second,
	)
	return worker, recorder
}

func TestDeliveryWorker_PublishesUnreadAndMarksRead(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	log := slog.Default()
	messages := repositories.NewMessageRepository(db, log, nil)

	now := time.Now().UTC()
	fresh := domain.ChatMessage{
		ID: uuid.New(), SenderID: "1", ReceiverID: "2",
		Content: "fresh", Timestamp: now,
	}
	old := domain.ChatMessage{
		ID: uuid.New(), SenderID: "1", ReceiverID: "2",
		Content: "too old", Timestamp: now.Add(-time.Minute),
	}
	req.NoError(messages.Store(fresh))
	req.NoError(messages.Store(old))

	worker, recorder := newDeliveryFixture(t, db, "2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	req.Eventually(func() bool {
		return len(recorder.ofType(event.MessageType)) == 1
	}, 2*time.Second, 10*time.Millisecond)

	delivered := recorder.ofType(event.MessageType)[0]
	payload, ok := delivered.Payload.(domain.ChatMessage)
	req.True(ok)
	req.Equal("fresh", payload.Content)

	// The read flag is now persisted: further ticks stay quiet
	time.Sleep(100 * time.Millisecond)
	req.Len(recorder.ofType(event.MessageType), 1)

	pending, err := messages.UnreadRecent("2", 5*time.Second)
	req.NoError(err)
	req.Empty(pending)
}

// cancelOnPublish simulates a session that disconnects while the tick is
// publishing: the first delivery cancels the worker context.
type cancelOnPublish struct {
	inner  *busRecorder
	cancel context.CancelFunc
	once   sync.Once
}

func (c *cancelOnPublish) Publish(e event.Event) {
	c.inner.Publish(e)
	c.once.Do(c.cancel)
}

func TestDeliveryWorker_StaleTickLeavesReadFlagsUntouched(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	log := slog.Default()
	messages := repositories.NewMessageRepository(db, log, nil)

	req.NoError(messages.Store(domain.ChatMessage{
		ID: uuid.New(), SenderID: "1", ReceiverID: "2",
		Content: "mid-flight", Timestamp: time.Now().UTC(),
	}))

	recorder := &busRecorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := &cancelOnPublish{inner: recorder, cancel: cancel}

	worker := NewDeliveryWorker(
		log,
		"2",
		bus,
		messages,
		repositories.NewCallRepository(db, log),
		observability.NewTracker(),
		20*time.Millisecond,
		5*time.Second,
		10*time.Second,
	)

	worker.tick(ctx)

	// The event went out before the session died
	req.Len(recorder.ofType(event.MessageType), 1)

	// But the aborted tick persisted nothing: the message is still unread
	// and the next session delivers it again
	pending, err := messages.UnreadRecent("2", 5*time.Second)
	req.NoError(err)
	req.Len(pending, 1)
	req.Equal("mid-flight", pending[0].Content)
}

func TestDeliveryWorker_RepublishesRingingCalls(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	calls := repositories.NewCallRepository(db, slog.Default())

	ringing := domain.NewCall("1", "2")
	req.NoError(calls.Store(ringing))

	answered := domain.NewCall("3", "2")
	answered.Accept()
	req.NoError(calls.Store(answered))

	worker, recorder := newDeliveryFixture(t, db, "2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	// Ringing calls are re-announced every tick until answered
	req.Eventually(func() bool {
		return len(recorder.ofType(event.CallRequestType)) >= 2
	}, 2*time.Second, 10*time.Millisecond)

	for _, e := range recorder.ofType(event.CallRequestType) {
		payload, ok := e.Payload.(domain.Call)
		req.True(ok)
		req.Equal(ringing.ID, payload.ID)
	}
}

func TestDeliveryWorker_IgnoresOtherReceivers(t *testing.T) {
	req := require.New(t)
	db := openTestDB(t)
	messages := repositories.NewMessageRepository(db, slog.Default(), nil)

	req.NoError(messages.Store(domain.ChatMessage{
		ID: uuid.New(), SenderID: "1", ReceiverID: "3",
		Content: "for someone else", Timestamp: time.Now().UTC(),
	}))

	worker, recorder := newDeliveryFixture(t, db, "2")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	time.Sleep(150 * time.Millisecond)
	req.Empty(recorder.ofType(event.MessageType))

	// The foreign message stays pending for its actual receiver
	pending, err := messages.UnreadRecent("3", 5*time.Second)
	req.NoError(err)
	req.Len(pending, 1)
}
