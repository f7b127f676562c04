//go:generate go run go.uber.org/mock/mockgen -source=call.go -destination=../mocks/mock_call_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"chat-mesh/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

const callPrefix = "call:"

type ICallRepository interface {
	Store(call domain.Call) error
	Get(id uuid.UUID) (domain.Call, bool, error)
	RingingRecent(receiverID string, window time.Duration) ([]domain.Call, error)
	ActiveFor(userID string) (*domain.Call, error)
}

// CallRepository persists calls with the same padded-timestamp key scheme
// as messages, keyed on the immutable start time so status updates
// overwrite the original row.
type CallRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewCallRepository(db *badger.DB, log *slog.Logger) *CallRepository {
	return &CallRepository{db: db, log: log}
}

func callKey(c domain.Call) []byte {
	return []byte(fmt.Sprintf("%s%019d:%s", callPrefix, c.StartTime.UnixNano(), c.ID))
}

func (r *CallRepository) Store(call domain.Call) error {
	data, err := json.Marshal(call)
	if err != nil {
		return err
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(callKey(call), data)
	})
}

func (r *CallRepository) all() ([]domain.Call, error) {
	var calls []domain.Call
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(callPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(value []byte) error {
				var c domain.Call
				if err := json.Unmarshal(value, &c); err != nil {
					r.log.Warn("Skipping malformed call row",
						"key", string(item.Key()), "error", err)
					return nil
				}
				calls = append(calls, c)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	return calls, err
}

func (r *CallRepository) Get(id uuid.UUID) (domain.Call, bool, error) {
	calls, err := r.all()
	if err != nil {
		return domain.Call{}, false, err
	}
	for _, c := range calls {
		if c.ID == id {
			return c, true, nil
		}
	}
	return domain.Call{}, false, nil
}

// RingingRecent returns ringing calls addressed to the receiver that
// started within the recency window. The poller re-publishes these as
// call-request events without mutating them.
func (r *CallRepository) RingingRecent(receiverID string, window time.Duration) ([]domain.Call, error) {
	calls, err := r.all()
	if err != nil {
		return nil, err
	}
	cutoff := time.Now().UTC().Add(-window)
	return lo.Filter(calls, func(c domain.Call, _ int) bool {
		return c.ReceiverID == receiverID && c.Status == domain.CallRinging &&
			c.StartTime.After(cutoff)
	}), nil
}

// ActiveFor returns the non-ended call involving the user, or nil.
// The single-active-call invariant is enforced on initiate, so the first
// match is the only one.
func (r *CallRepository) ActiveFor(userID string) (*domain.Call, error) {
	calls, err := r.all()
	if err != nil {
		return nil, err
	}
	for _, c := range calls {
		if c.Involves(userID) && c.Active() {
			return &c, nil
		}
	}
	return nil, nil
}
