package runtime

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type blockingWorker struct {
	started chan struct{}
	stopped chan struct{}
}

func newBlockingWorker() *blockingWorker {
	return &blockingWorker{
		started: make(chan struct{}, 1),
		stopped: make(chan struct{}, 1),
	}
}

func (w *blockingWorker) Run(ctx context.Context) error {
	w.started <- struct{}{}
	<-ctx.Done()
	w.stopped <- struct{}{}
	return ctx.Err()
}

func TestSession_StartActivatesForUser(t *testing.T) {
	req := require.New(t)
	session := NewSession(slog.Default())

	req.False(session.IsActive())

	w := newBlockingWorker()
	session.Start("1", w)
	defer session.Stop()

	req.True(session.ActiveFor("1"))
	req.False(session.ActiveFor("2"))

	userID, ok := session.UserID()
	req.True(ok)
	req.Equal("1", userID)

	select {
	case <-w.started:
	case <-time.After(time.Second):
		t.Fatal("worker never started")
	}
}

func TestSession_StopCancelsWorkers(t *testing.T) {
	req := require.New(t)
	session := NewSession(slog.Default())

	w := newBlockingWorker()
	session.Start("1", w)
	<-w.started

	session.Stop()
	req.False(session.IsActive())

	select {
	case <-w.stopped:
	case <-time.After(time.Second):
		t.Fatal("worker never stopped")
	}

	// Stop on an inactive session is a no-op
	session.Stop()
}

func TestSession_RestartReplacesWorkerSet(t *testing.T) {
	req := require.New(t)
	session := NewSession(slog.Default())

	first := newBlockingWorker()
	session.Start("1", first)
	<-first.started

	second := newBlockingWorker()
	session.Start("2", second)
	defer session.Stop()

	// The previous user's worker set is gone, keeping a single poller
	select {
	case <-first.stopped:
	case <-time.After(time.Second):
		t.Fatal("first worker survived the restart")
	}
	<-second.started

	req.True(session.ActiveFor("2"))
	req.False(session.ActiveFor("1"))
}
