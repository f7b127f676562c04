package runtime

import (
	"context"
	"log/slog"
	"sync"

	"chat-mesh/contract"
	"chat-mesh/runtime/workers"
)

type SessionState int

const (
	Uninitialized SessionState = iota
	Active
	Disconnected
)

// Session holds the lifecycle of one logical connection for a single user
// within this execution context. Activating it spins up a supervised set
// of workers (delivery poller, relay consumer, telemetry); stopping it
// cancels them. At most one worker set runs per session at any time.
type Session struct {
	mu     sync.Mutex
	log    *slog.Logger
	state  SessionState
	userID string
	cancel context.CancelFunc
	sup    contract.ISupervisor
}

func NewSession(log *slog.Logger) *Session {
	return &Session{log: log}
}

// Start activates the session for userID and runs the given workers under
// supervision. A previously active worker set is stopped first, keeping
// the one-active-poller invariant.
func (s *Session) Start(userID string, ws ...contract.Worker) {
	s.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	sup := workers.NewSupervisor(s.log)
	sup.Add(ws...)

	s.userID = userID
	s.state = Active
	s.cancel = cancel
	s.sup = sup

	go sup.Run(ctx)
	s.log.Info("Session activated", "userId", userID)
}

// Stop deactivates the session. It is safe to call at any time, including
// while a poll tick is in flight: cancellation makes the stale tick abort
// before persisting anything.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Active {
		return
	}
	s.state = Disconnected
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.sup != nil {
		s.sup.Stop()
		s.sup = nil
	}
	s.log.Info("Session disconnected", "userId", s.userID)
}

func (s *Session) ActiveFor(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Active && s.userID == userID
}

func (s *Session) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == Active
}

// UserID returns the bound user and whether the session is active.
func (s *Session) UserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.state == Active
}
