package repositories

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"chat-mesh/domain/event"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/pb"
)

const broadcastKey = "broadcast:event"

// BroadcastSlot is the single shared record used to relay an event to
// sibling execution contexts. Every emission overwrites the slot; the
// entry carries a short TTL so the slot is empty again shortly after,
// mirroring the original timed removal of the broadcast record.
type BroadcastSlot struct {
	db     *badger.DB
	log    *slog.Logger
	linger time.Duration
}

func NewBroadcastSlot(db *badger.DB, log *slog.Logger, linger time.Duration) *BroadcastSlot {
	return &BroadcastSlot{db: db, log: log, linger: linger}
}

func (b *BroadcastSlot) Publish(e event.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(broadcastKey), data).WithTTL(b.linger)
		return txn.SetEntry(entry)
	})
}

// Watch blocks on the slot's change feed until the context is canceled,
// invoking fn for every event written by any session sharing the store.
// Expirations and malformed payloads are skipped with a log line.
func (b *BroadcastSlot) Watch(ctx context.Context, fn func(event.Event)) error {
	matches := []pb.Match{{Prefix: []byte(broadcastKey)}}
	return b.db.Subscribe(ctx, func(kvs *badger.KVList) error {
		for _, kv := range kvs.Kv {
			if len(kv.Value) == 0 {
				continue
			}
			var e event.Event
			if err := json.Unmarshal(kv.Value, &e); err != nil {
				b.log.Warn("Dropping undecodable broadcast", "error", err)
				continue
			}
			fn(e)
		}
		return nil
	}, matches)
}
