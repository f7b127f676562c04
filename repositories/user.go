//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_directory.go -package=mocks
package repositories

import (
	"encoding/json"
	"log/slog"

	"chat-mesh/domain"

	"github.com/dgraph-io/badger/v4"
)

const userPrefix = "user:"

// IUserDirectory is the external collaborator owning user records.
// Reads degrade to an empty list on any failure and never raise;
// writes are best-effort.
type IUserDirectory interface {
	GetUsers() []domain.User
	SaveUsers(users []domain.User) error
}

// UserDirectory is the badger-backed stand-in for the real directory
// service. This core only touches the presence fields of each record.
type UserDirectory struct {
	db  *badger.DB
	log *slog.Logger
}

func NewUserDirectory(db *badger.DB, log *slog.Logger) *UserDirectory {
	return &UserDirectory{db: db, log: log}
}

func (d *UserDirectory) GetUsers() []domain.User {
	var users []domain.User
	err := d.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(userPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(value []byte) error {
				var u domain.User
				if err := json.Unmarshal(value, &u); err != nil {
					d.log.Warn("Skipping malformed user row",
						"key", string(item.Key()), "error", err)
					return nil
				}
				users = append(users, u)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		d.log.Error("Directory read failed, degrading to empty list", "error", err)
		return nil
	}
	return users
}

func (d *UserDirectory) SaveUsers(users []domain.User) error {
	return d.db.Update(func(txn *badger.Txn) error {
		for _, u := range users {
			data, err := json.Marshal(u)
			if err != nil {
				return err
			}
			if err := txn.Set([]byte(userPrefix+u.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}
