package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"chat-mesh/contract"
	"chat-mesh/domain"
	"chat-mesh/domain/event"
	"chat-mesh/errors"
	"chat-mesh/internal"
	"chat-mesh/moderation"
	"chat-mesh/observability"
	"chat-mesh/repositories"
	"chat-mesh/runtime"
	"chat-mesh/runtime/workers"
	"chat-mesh/search"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

type sendMessageRequest struct {
	ReceiverID string `validate:"required"`
	Content    string `validate:"required"`
}

type initiateCallRequest struct {
	ReceiverID string `validate:"required"`
}

// Options carries the tunables of one session.
type Options struct {
	PollInterval      time.Duration
	MessageWindow     time.Duration
	CallWindow        time.Duration
	TelemetryInterval time.Duration
	MaxContentLength  int
}

func OptionsFromConfig(cfg internal.Config) Options {
	return Options{
		PollInterval:      cfg.PollInterval,
		MessageWindow:     cfg.MessageWindow,
		CallWindow:        cfg.CallWindow,
		TelemetryInterval: cfg.TelemetryInterval,
		MaxContentLength:  cfg.MaxContentLength,
	}
}

type IChatService interface {
	Initialize(userID string) error
	Disconnect()
	Subscribe(t event.Type, fn runtime.Handler) func()
	SendMessage(receiverID, content string) (domain.ChatMessage, error)
	GetMessagesBetweenUsers(a, b string) []domain.ChatMessage
	MarkMessagesAsRead(senderID string)
	SearchMessages(ctx context.Context, query string, limit int) ([]search.Result, error)
	InitiateCall(receiverID string) (domain.Call, error)
	AcceptCall(callID uuid.UUID) (domain.Call, error)
	RejectCall(callID uuid.UUID) (domain.Call, error)
	EndCall(callID uuid.UUID) (domain.Call, error)
	GetActiveCall() *domain.Call
	Users() []domain.User
}

// ChatService is the per-session facade exposed to the UI layer. It wires
// the session lifecycle, the event bus, the delivery simulator and the
// shared stores together. One instance per logical session; several
// instances may share the same stores, each with its own bus.
type ChatService struct {
	log       *slog.Logger
	opts      Options
	session   *runtime.Session
	bus       *runtime.Bus
	messages  repositories.IMessageRepository
	calls     repositories.ICallRepository
	directory repositories.IUserDirectory
	broadcast *repositories.BroadcastSlot
	presence  *PresenceTracker
	moderator *moderation.Moderator
	index     *search.MessageIndex
	tracker   *observability.Tracker
}

// NewChatService builds a session-scoped service. broadcast, moderator and
// index are optional: a nil broadcast disables the cross-context relay, a
// nil moderator skips outbound censoring, a nil index disables search.
func NewChatService(
	log *slog.Logger,
	opts Options,
	messages repositories.IMessageRepository,
	calls repositories.ICallRepository,
	directory repositories.IUserDirectory,
	broadcast *repositories.BroadcastSlot,
	moderator *moderation.Moderator,
	index *search.MessageIndex,
) *ChatService {
	s := &ChatService{
		log:       log,
		opts:      opts,
		session:   runtime.NewSession(log),
		bus:       runtime.NewBus(log),
		messages:  messages,
		calls:     calls,
		directory: directory,
		broadcast: broadcast,
		moderator: moderator,
		index:     index,
		tracker:   observability.NewTracker(),
	}
	s.presence = NewPresenceTracker(log, directory, s.session.IsActive, s.emitPresence)
	return s
}

// Initialize activates the session for userID. It is idempotent for the
// same user; an active session for a different user is torn down first.
func (s *ChatService) Initialize(userID string) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", errors.ErrNotInitialized)
	}
	if s.session.ActiveFor(userID) {
		return nil
	}
	if s.session.IsActive() {
		s.Disconnect()
	}

	// The session is not Active yet, so this never emits.
	s.presence.UpdateStatus(userID, true)

	ws := []contract.Worker{
		workers.NewDeliveryWorker(s.log, userID, s.bus, s.messages, s.calls,
			s.tracker, s.opts.PollInterval, s.opts.MessageWindow, s.opts.CallWindow),
		workers.NewTelemetryWorker(s.log, userID, s.tracker, s.opts.TelemetryInterval),
	}
	if s.broadcast != nil {
		ws = append(ws, workers.NewRelayWorker(s.log, userID, s.bus, s.broadcast, s.tracker))
	}

	s.session.Start(userID, ws...)
	return nil
}

// Disconnect marks the user offline, stops the poller and relay, and
// clears every bus subscription. Calling it on an inactive session is a
// no-op.
func (s *ChatService) Disconnect() {
	userID, ok := s.session.UserID()
	if !ok {
		return
	}

	// Leave Active before touching the directory so the tracker stays
	// silent during teardown.
	s.session.Stop()
	s.bus.Clear()
	s.presence.UpdateStatus(userID, false)
}

func (s *ChatService) Subscribe(t event.Type, fn runtime.Handler) func() {
	return s.bus.Subscribe(t, fn)
}

// emit publishes the event on the local bus and relays it to sibling
// execution contexts through the broadcast slot. Outside an active
// session it is a no-op with a diagnostic.
func (s *ChatService) emit(e event.Event) {
	if !s.session.IsActive() {
		s.log.Debug("Session not active, event not emitted", "type", string(e.Type))
		return
	}

	s.bus.Publish(e)
	s.tracker.IncrEventsPublished()

	if s.broadcast == nil {
		return
	}
	if err := s.broadcast.Publish(e); err != nil {
		s.log.Warn("Broadcast failed, siblings will rely on polling",
			"type", string(e.Type), "error", err)
	}
}

func (s *ChatService) emitPresence(p event.Presence) {
	userID, _ := s.session.UserID()
	s.emit(event.NewUserStatus(userID, p))
}

// SendMessage persists and emits a message from the session user. The
// content passes the outbound moderator first when one is configured.
func (s *ChatService) SendMessage(receiverID, content string) (domain.ChatMessage, error) {
	senderID, ok := s.session.UserID()
	if !ok {
		return domain.ChatMessage{}, errors.ErrNotInitialized
	}

	req := sendMessageRequest{ReceiverID: receiverID, Content: content}
	if err := validate.Struct(req); err != nil {
		return domain.ChatMessage{}, err
	}
	if s.opts.MaxContentLength > 0 && utf8.RuneCountInString(content) > s.opts.MaxContentLength {
		return domain.ChatMessage{}, fmt.Errorf("content exceeds %d characters", s.opts.MaxContentLength)
	}

	if s.moderator != nil {
		censored, found := s.moderator.Censor(content)
		content = censored
		s.tracker.AddCensoredWords(len(found))
	}

	message := domain.NewChatMessage(senderID, receiverID, content)

	if err := s.messages.Store(message); err != nil {
		s.log.Warn("Message store failed, delivery relies on the relay only",
			"messageId", message.ID, "error", err)
	}
	if s.index != nil {
		if err := s.index.Index(message); err != nil {
			s.log.Warn("Message indexing failed", "messageId", message.ID, "error", err)
		}
	}

	s.tracker.IncrMessagesSent()
	s.emit(event.NewMessage(message))
	return message, nil
}

// GetMessagesBetweenUsers returns the conversation ordered by timestamp
// ascending. Read failures degrade to an empty result.
func (s *ChatService) GetMessagesBetweenUsers(a, b string) []domain.ChatMessage {
	conversation, err := s.messages.Conversation(a, b)
	if err != nil {
		s.log.Warn("Conversation read failed, degrading to empty", "error", err)
		return nil
	}
	return conversation
}

// MarkMessagesAsRead flags every unread message from senderID to the
// session user as read. Idempotent; a no-op without an active session.
func (s *ChatService) MarkMessagesAsRead(senderID string) {
	receiverID, ok := s.session.UserID()
	if !ok {
		return
	}
	if _, err := s.messages.MarkConversationRead(senderID, receiverID); err != nil {
		s.log.Warn("Failed to persist read flags", "senderId", senderID, "error", err)
	}
}

func (s *ChatService) SearchMessages(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if s.index == nil {
		return nil, nil
	}
	return s.index.Search(ctx, query, limit)
}

// InitiateCall creates a ringing call towards receiverID. It fails when
// the session is not initialized or the user is already in a call.
func (s *ChatService) InitiateCall(receiverID string) (domain.Call, error) {
	callerID, ok := s.session.UserID()
	if !ok {
		return domain.Call{}, errors.ErrNotInitialized
	}
	if err := validate.Struct(initiateCallRequest{ReceiverID: receiverID}); err != nil {
		return domain.Call{}, err
	}

	active, err := s.calls.ActiveFor(callerID)
	if err != nil {
		s.log.Warn("Active call lookup failed", "error", err)
	}
	if active != nil {
		return domain.Call{}, errors.ErrCallInProgress
	}

	call := domain.NewCall(callerID, receiverID)
	if err := s.calls.Store(call); err != nil {
		s.log.Warn("Call store failed, receiver relies on the relay only",
			"callId", call.ID, "error", err)
	}

	s.tracker.IncrCallsStarted()
	s.emit(event.NewCall(event.CallRequestType, callerID, receiverID, call))
	return call, nil
}

// AcceptCall transitions a ringing call to ongoing and notifies the
// original caller. Unknown ids yield ErrCallNotFound, ended calls
// ErrCallEnded; neither mutates anything.
func (s *ChatService) AcceptCall(callID uuid.UUID) (domain.Call, error) {
	call, found, err := s.calls.Get(callID)
	if err != nil || !found {
		return domain.Call{}, errors.ErrCallNotFound
	}
	if !call.Accept() {
		return domain.Call{}, errors.ErrCallEnded
	}
	if err := s.calls.Store(call); err != nil {
		s.log.Warn("Call update failed", "callId", call.ID, "error", err)
	}

	userID, _ := s.session.UserID()
	s.emit(event.NewCall(event.CallAcceptType, userID, call.CallerID, call))
	return call, nil
}

// RejectCall ends a ringing call without answering and notifies the
// caller with a call-reject event. Only ringing calls can be rejected:
// an answered call must go through EndCall.
func (s *ChatService) RejectCall(callID uuid.UUID) (domain.Call, error) {
	call, found, err := s.calls.Get(callID)
	if err != nil || !found {
		return domain.Call{}, errors.ErrCallNotFound
	}
	if call.Status == domain.CallEnded {
		return domain.Call{}, errors.ErrCallEnded
	}
	if call.Status == domain.CallOngoing {
		return domain.Call{}, errors.ErrCallInProgress
	}
	call.End()
	if err := s.calls.Store(call); err != nil {
		s.log.Warn("Call update failed", "callId", call.ID, "error", err)
	}

	userID, _ := s.session.UserID()
	s.emit(event.NewCall(event.CallRejectType, userID, call.CallerID, call))
	return call, nil
}

// EndCall transitions any non-ended call to ended, stamps the end time and
// notifies the other party.
func (s *ChatService) EndCall(callID uuid.UUID) (domain.Call, error) {
	call, found, err := s.calls.Get(callID)
	if err != nil || !found {
		return domain.Call{}, errors.ErrCallNotFound
	}
	if !call.End() {
		return domain.Call{}, errors.ErrCallEnded
	}
	if err := s.calls.Store(call); err != nil {
		s.log.Warn("Call update failed", "callId", call.ID, "error", err)
	}

	userID, _ := s.session.UserID()
	s.emit(event.NewCall(event.CallEndType, userID, call.OtherParty(userID), call))
	return call, nil
}

// GetActiveCall returns the single non-ended call involving the session
// user, or nil.
func (s *ChatService) GetActiveCall() *domain.Call {
	userID, ok := s.session.UserID()
	if !ok {
		return nil
	}
	call, err := s.calls.ActiveFor(userID)
	if err != nil {
		s.log.Warn("Active call lookup failed", "error", err)
		return nil
	}
	return call
}

// Users returns the directory contents; empty on any read failure.
func (s *ChatService) Users() []domain.User {
	return s.directory.GetUsers()
}
