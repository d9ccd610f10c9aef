package store

import (
	"encoding/json"
	"time"

	"relaychat/internal/domain"
)

// accountRecord is the value persisted per username by the database
// backends. The username is the key.
type accountRecord struct {
	Digest  []byte    `json:"digest"`
	Created time.Time `json:"created"`
}

func encodeAccount(digest []byte, created time.Time) ([]byte, error) {
	return json.Marshal(accountRecord{Digest: digest, Created: created.UTC()})
}

func decodeAccount(username domain.Username, b []byte) (domain.Account, error) {
	var rec accountRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return domain.Account{}, err
	}
	return domain.Account{Username: username, Digest: rec.Digest, Created: rec.Created}, nil
}

func accountKey(username domain.Username) []byte {
	return []byte(username.String())
}
