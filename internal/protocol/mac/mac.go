package mac

import (
	"crypto/subtle"
	"encoding/hex"

	"github.com/google/uuid"
)

// Token is an issued challenge value: 32 lowercase hex characters.
type Token string

// Issue returns a fresh 128-bit random token.
func Issue() (Token, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return Token(hex.EncodeToString(id[:])), nil
}

// Verify reports whether presented equals issued. The comparison is constant
// time and an empty issued token never verifies.
func Verify(issued Token, presented string) bool {
	if issued == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(issued), []byte(presented)) == 1
}
