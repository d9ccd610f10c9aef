package types

import "time"

// Account is a registered credential record held by the credential store.
//
// Digest is the one-way password digest; the relay never stores or compares
// raw passwords.
type Account struct {
	Username Username  `json:"username"`
	Digest   []byte    `json:"digest"`
	Created  time.Time `json:"created"`
}
