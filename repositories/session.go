//go:generate go run go.uber.org/mock/mockgen -source=session.go -destination=../mocks/mock_session_repository.go -package=mocks
package repositories

import (
	"chatlark/domain"
	"chatlark/errors"
	"encoding/json"
	goerrors "errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
)

// userKey is the single durable slot holding the last resolved current user.
// identityKey records which identity resolved it.
const (
	userKey     = "app_user"
	identityKey = "app_user_identity"
)

type ISessionRepository interface {
	SaveUser(identity string, user domain.User) error
	LoadUser(identity string) (domain.User, error)
	Clear() error
}

type SessionRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewSessionRepository(db *badger.DB, log *slog.Logger) *SessionRepository {
	return &SessionRepository{db: db, log: log}
}

// SaveUser overwrites the slot with the JSON form of the user and the identity it belongs to.
func (r *SessionRepository) SaveUser(identity string, user domain.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(identityKey), []byte(identity)); err != nil {
			return err
		}
		return txn.Set([]byte(userKey), data)
	})
}

// LoadUser returns errors.ErrSessionMissing when nothing was stored for identity.
// A slot written for another identity, or a corrupted one, is treated the same
// way, so the caller falls back to the network.
func (r *SessionRepository) LoadUser(identity string) (domain.User, error) {
	var user domain.User
	var owner string
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(identityKey))
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		owner = string(raw)
		if owner != identity {
			return nil
		}
		item, err = txn.Get([]byte(userKey))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	switch {
	case err == nil && owner != identity:
		r.log.Debug("Stored user belongs to another identity", "stored", owner, "requested", identity)
		return domain.User{}, errors.ErrSessionMissing
	case err == nil:
		return user, nil
	case goerrors.Is(err, badger.ErrKeyNotFound):
		return domain.User{}, errors.ErrSessionMissing
	default:
		r.log.Warn("Stored user is unreadable, ignoring it", "error", err)
		return domain.User{}, errors.ErrSessionMissing
	}
}

func (r *SessionRepository) Clear() error {
	return r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(identityKey)); err != nil {
			return err
		}
		return txn.Delete([]byte(userKey))
	})
}

// Entry is a raw view of one key, used by the inspection command.
type Entry struct {
	Key   string
	Value string
	Size  int64
}

// Entries lists every key of the store.
func (r *SessionRepository) Entries() ([]Entry, error) {
	var entries []Entry
	err := r.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			entries = append(entries, Entry{
				Key:   string(item.Key()),
				Value: string(val),
				Size:  item.EstimatedSize(),
			})
		}
		return nil
	})
	return entries, err
}
