//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-mesh/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/samber/lo"
)

const messagePrefix = "msg:"

type IMessageRepository interface {
	Store(message domain.ChatMessage) error
	Conversation(a, b string) ([]domain.ChatMessage, error)
	UnreadRecent(receiverID string, window time.Duration) ([]domain.ChatMessage, error)
	MarkRead(messages []domain.ChatMessage) (int, error)
	MarkConversationRead(senderID, receiverID string) (int, error)
}

// MessageRepository persists chat messages in BadgerDB.
// The key is formatted as "msg:{timestamp_padded}:{uuid}" to:
//  1. Ensure chronological sorting using 19-digit zero padding
//     (lexicographical order).
//  2. Prevent data loss by using UUID as a collision disconnector if two
//     messages arrive at the same nanosecond.
type MessageRepository struct {
	db            *badger.DB
	log           *slog.Logger
	limitMessages *int
}

func NewMessageRepository(db *badger.DB, log *slog.Logger, limitMessages *int) *MessageRepository {
	return &MessageRepository{db: db, log: log, limitMessages: limitMessages}
}

func messageKey(m domain.ChatMessage) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", messagePrefix, m.Timestamp.UnixNano(), m.ID))
}

func (r *MessageRepository) Store(message domain.ChatMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(messageKey(message), data)
	})
}

// all scans the whole message collection in key order, which matches
// timestamp order thanks to the padded key. Malformed rows are logged
// and skipped so one bad record never hides the rest of the history.
func (r *MessageRepository) all() ([]domain.ChatMessage, error) {
	var messages []domain.ChatMessage
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(messagePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(value []byte) error {
				var m domain.ChatMessage
				if err := json.Unmarshal(value, &m); err != nil {
					r.log.Warn("Skipping malformed message row",
						"key", string(item.Key()), "error", err)
					return nil
				}
				messages = append(messages, m)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return messages, err
}

// Conversation returns the full exchange between two users ordered by
// timestamp ascending, capped at limitMessages when configured.
func (r *MessageRepository) Conversation(a, b string) ([]domain.ChatMessage, error) {
	messages, err := r.all()
	if err != nil {
		return nil, err
	}
	conversation := lo.Filter(messages, func(m domain.ChatMessage, _ int) bool {
		return m.Between(a, b)
	})
	if r.limitMessages != nil && len(conversation) > *r.limitMessages {
		r.log.Debug(fmt.Sprintf("Maximum of %d messages reached", *r.limitMessages))
		conversation = conversation[len(conversation)-*r.limitMessages:]
	}
	return conversation, nil
}

// UnreadRecent returns unread messages addressed to the receiver whose
// timestamp falls within the recency window. This is the poller's inbox
// scan; the window bounds redundant replays of old history.
func (r *MessageRepository) UnreadRecent(receiverID string, window time.Duration) ([]domain.ChatMessage, error) {
	messages, err := r.all()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-window)
	return lo.Filter(messages, func(m domain.ChatMessage, _ int) bool {
		return m.ReceiverID == receiverID && !m.Read && m.Timestamp.After(cutoff)
	}), nil
}

// MarkRead persists the read flag for the given messages. The key embeds
// only immutable fields, so the updated row lands on the same key.
func (r *MessageRepository) MarkRead(messages []domain.ChatMessage) (int, error) {
	updated := 0
	err := r.db.Update(func(txn *badger.Txn) error {
		for _, m := range messages {
			if m.Read {
				continue
			}
			m.Read = true
			data, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := txn.Set(messageKey(m), data); err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// MarkConversationRead flags every unread message from senderID to
// receiverID as read. Calling it twice leaves the store unchanged.
func (r *MessageRepository) MarkConversationRead(senderID, receiverID string) (int, error) {
	messages, err := r.all()
	if err != nil {
		return 0, err
	}
	pending := lo.Filter(messages, func(m domain.ChatMessage, _ int) bool {
		return m.SenderID == senderID && m.ReceiverID == receiverID && !m.Read
	})
	if len(pending) == 0 {
		return 0, nil
	}
	return r.MarkRead(pending)
}
