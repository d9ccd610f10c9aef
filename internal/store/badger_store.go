package store

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"relaychat/internal/domain"
)

var accountPrefix = []byte("account/")

// BadgerAccountStore keeps accounts in a badger key-value directory.
type BadgerAccountStore struct {
	db *badger.DB
}

// OpenBadgerAccountStore opens (or creates) the badger directory at path.
func OpenBadgerAccountStore(path string) (*BadgerAccountStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerAccountStore{db: db}, nil
}

func badgerKey(username domain.Username) []byte {
	return append(append([]byte(nil), accountPrefix...), accountKey(username)...)
}

func (s *BadgerAccountStore) Lookup(
	_ context.Context,
	username domain.Username,
	digest []byte,
) (domain.Account, bool, error) {
	var (
		acct  domain.Account
		found bool
	)
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(badgerKey(username))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			a, err := decodeAccount(username, val)
			if err != nil {
				return err
			}
			if subtle.ConstantTimeCompare(a.Digest, digest) == 1 {
				acct, found = a, true
			}
			return nil
		})
	})
	if err != nil {
		return domain.Account{}, false, err
	}
	return acct, found, nil
}

func (s *BadgerAccountStore) Exists(_ context.Context, username domain.Username) (bool, error) {
	var ok bool
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(username))
		switch {
		case err == nil:
			ok = true
			return nil
		case errors.Is(err, badger.ErrKeyNotFound):
			return nil
		default:
			return err
		}
	})
	return ok, err
}

// Insert adds the account. A concurrent insert of the same key makes the
// losing transaction fail with ErrConflict, reported as taken.
func (s *BadgerAccountStore) Insert(_ context.Context, username domain.Username, digest []byte) error {
	val, err := encodeAccount(digest, time.Now())
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(badgerKey(username))
		if err == nil {
			return domain.ErrUsernameTaken
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(badgerKey(username), val)
	})
	if errors.Is(err, badger.ErrConflict) {
		return domain.ErrUsernameTaken
	}
	return err
}

func (s *BadgerAccountStore) Close() error {
	return s.db.Close()
}

var _ domain.CredentialStore = (*BadgerAccountStore)(nil)
