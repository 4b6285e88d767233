package repositories

import (
	"chatlark/domain"
	"chatlark/errors"
	"log/slog"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *badger.DB {
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSessionRepository_LoadUser_Empty(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openInMemory(t), slog.Default())

	_, err := repository.LoadUser("5031217165")

	req.ErrorIs(err, errors.ErrSessionMissing)
}

func TestSessionRepository_SaveThenLoad(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openInMemory(t), slog.Default())
	user := domain.User{ID: 9, Login: "test_user", Email: "t@example.com", Groups: []string{"users"}}

	// Given a first user is stored
	req.NoError(repository.SaveUser("5031217165", domain.User{ID: 1, Login: "old"}))
	// When a fresher identity overwrites it
	req.NoError(repository.SaveUser("5031217165", user))

	// Then only the last one is read back
	got, err := repository.LoadUser("5031217165")
	req.NoError(err)
	req.Equal(user, got)

	entries, err := repository.Entries()
	req.NoError(err)
	req.Len(entries, 2)
	req.Equal("app_user", entries[0].Key)
	req.Equal("app_user_identity", entries[1].Key)
	req.Equal("5031217165", entries[1].Value)
}

func TestSessionRepository_LoadUser_OtherIdentity(t *testing.T) {
	req := require.New(t)
	repository := NewSessionRepository(openInMemory(t), slog.Default())

	// Given alice was resolved last
	req.NoError(repository.SaveUser("alice-identity", domain.User{ID: 1, Login: "alice"}))

	// When bob's identity is looked up
	_, err := repository.LoadUser("bob-identity")

	// Then alice is not handed out
	req.ErrorIs(err, errors.ErrSessionMissing)

	got, err := repository.LoadUser("alice-identity")
	req.NoError(err)
	req.Equal("alice", got.Login)
}

func TestSessionRepository_CorruptedSlot(t *testing.T) {
	req := require.New(t)
	db := openInMemory(t)
	repository := NewSessionRepository(db, slog.Default())

	req.NoError(db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte("app_user_identity"), []byte("5031217165")); err != nil {
			return err
		}
		return txn.Set([]byte("app_user"), []byte("{not json"))
	}))

	_, err := repository.LoadUser("5031217165")
	req.ErrorIs(err, errors.ErrSessionMissing)

	req.NoError(repository.Clear())
	entries, err := repository.Entries()
	req.NoError(err)
	req.Empty(entries)
}
