package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"chat-mesh/domain"
	"chat-mesh/domain/event"
	"chat-mesh/internal"
	"chat-mesh/moderation"
	"chat-mesh/repositories"
	"chat-mesh/search"
	"chat-mesh/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

type Config struct {
	internal.Config
	ChatUserID string `env:"CHAT_USER_ID,required=true"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the session lifecycle, and
// centralizes error reporting so deferred cleanups always execute.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Stores (BadgerDB + Bluge)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeCfg := bluge.DefaultConfig(config.BlugeFilepath)
	blugeWriter, err := bluge.OpenWriter(blugeCfg)
	if err != nil {
		return fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		log.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Session components
	messages := repositories.NewMessageRepository(db, log, config.LimitMessages)
	calls := repositories.NewCallRepository(db, log)
	directory := repositories.NewUserDirectory(db, log)
	broadcast := repositories.NewBroadcastSlot(db, log, config.BroadcastLinger)
	index := search.NewMessageIndex(blugeWriter, log)

	var moderator *moderation.Moderator
	if words := config.Words(); len(words) > 0 {
		replacement, err := internal.CharacterRune(config.CharReplacement)
		if err != nil {
			return err
		}
		m, err := moderation.NewModerator(words, replacement)
		if err != nil {
			return fmt.Errorf("moderator build failed: %w", err)
		}
		moderator = &m
	}

	service := services.NewChatService(
		log, services.OptionsFromConfig(config.Config),
		messages, calls, directory, broadcast, moderator, index,
	)

	seedDirectory(directory, config.ChatUserID)
	logIncomingEvents(service, log)

	// 4. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 5. Start the session
	if err := service.Initialize(config.ChatUserID); err != nil {
		return fmt.Errorf("session initialization failed: %w", err)
	}
	log.Info("Session running", "userId", config.ChatUserID)

	// 6. Wait for Stop, then mark presence offline before exiting
	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	service.Disconnect()
	log.Info("Program stopped cleanly")

	return nil
}

// seedDirectory creates a couple of demo users on an empty store so
// presence updates have records to mutate (signup lives outside this
// subsystem).
func seedDirectory(directory *repositories.UserDirectory, selfID string) {
	if len(directory.GetUsers()) > 0 {
		return
	}
	_ = directory.SaveUsers([]domain.User{
		{ID: selfID, FirstName: "Demo", LastName: "User", Email: selfID + "@example.com"},
		{ID: "2", FirstName: "Alice", LastName: "Martin", Email: "alice@example.com"},
		{ID: "3", FirstName: "Bob", LastName: "Durand", Email: "bob@example.com"},
	})
}

// logIncomingEvents mirrors what a UI layer would do with the bus.
func logIncomingEvents(service *services.ChatService, log *slog.Logger) {
	service.Subscribe(event.MessageType, func(e event.Event) {
		if m, ok := e.Payload.(domain.ChatMessage); ok {
			log.Info("Message received", "from", m.SenderID, "content", m.Content)
		}
	})
	service.Subscribe(event.UserStatusType, func(e event.Event) {
		if p, ok := e.Payload.(event.Presence); ok {
			log.Info("Presence changed", "userId", p.UserID, "online", p.Online)
		}
	})
	for _, t := range []event.Type{
		event.CallRequestType, event.CallAcceptType,
		event.CallRejectType, event.CallEndType,
	} {
		eventType := t
		service.Subscribe(eventType, func(e event.Event) {
			if c, ok := e.Payload.(domain.Call); ok {
				log.Info("Call event", "type", string(eventType),
					"callId", c.ID, "status", string(c.Status))
			}
		})
	}
}
