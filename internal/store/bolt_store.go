package store

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"relaychat/internal/domain"
)

const (
	accountsBucket = "accounts"
	metadataBucket = "metadata"
	versionKey     = "version"

	boltSchemaVersion = 0
)

// BoltAccountStore keeps accounts in a bbolt database file.
type BoltAccountStore struct {
	db *bolt.DB
}

// OpenBoltAccountStore creates (or loads) the account database at path.
func OpenBoltAccountStore(path string) (*BoltAccountStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		// Ensure that all the buckets exist, and grab the metadata bucket.
		meta, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(accountsBucket)); err != nil {
			return err
		}

		if b := meta.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != boltSchemaVersion {
				return fmt.Errorf("accounts: incompatible version: %v", b)
			}
			return nil
		}
		return meta.Put([]byte(versionKey), []byte{boltSchemaVersion})
	}); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &BoltAccountStore{db: db}, nil
}

func (s *BoltAccountStore) Lookup(
	_ context.Context,
	username domain.Username,
	digest []byte,
) (domain.Account, bool, error) {
	var (
		acct  domain.Account
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(accountsBucket)).Get(accountKey(username))
		if raw == nil {
			return nil
		}
		a, err := decodeAccount(username, raw)
		if err != nil {
			return err
		}
		if subtle.ConstantTimeCompare(a.Digest, digest) == 1 {
			acct, found = a, true
		}
		return nil
	})
	if err != nil {
		return domain.Account{}, false, err
	}
	return acct, found, nil
}

func (s *BoltAccountStore) Exists(_ context.Context, username domain.Username) (bool, error) {
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		ok = tx.Bucket([]byte(accountsBucket)).Get(accountKey(username)) != nil
		return nil
	})
	return ok, err
}

// Insert adds the account. bbolt serialises writers, so the existence check
// and the put cannot interleave with another Insert.
func (s *BoltAccountStore) Insert(_ context.Context, username domain.Username, digest []byte) error {
	val, err := encodeAccount(digest, time.Now())
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(accountsBucket))
		if bkt.Get(accountKey(username)) != nil {
			return domain.ErrUsernameTaken
		}
		return bkt.Put(accountKey(username), val)
	})
}

func (s *BoltAccountStore) Close() error {
	_ = s.db.Sync()
	return s.db.Close()
}

var _ domain.CredentialStore = (*BoltAccountStore)(nil)
