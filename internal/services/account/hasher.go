package account

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"

	"relaychat/internal/domain"
)

const (
	digestLen  = 32
	saltDomain = "relay-account:"
)

// Argon2Params are the argon2id costs. Changing them invalidates every
// stored digest.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultArgon2 follows the RFC 9106 second recommended option.
var DefaultArgon2 = Argon2Params{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}

// Argon2Hasher derives password digests with argon2id.
//
// The salt is derived from the username so that the digest is
// deterministic and the store can match on it directly.
type Argon2Hasher struct {
	params Argon2Params
}

// NewArgon2Hasher returns a hasher with p, filling zero fields from
// DefaultArgon2.
func NewArgon2Hasher(p Argon2Params) *Argon2Hasher {
	if p.Time == 0 {
		p.Time = DefaultArgon2.Time
	}
	if p.MemoryKiB == 0 {
		p.MemoryKiB = DefaultArgon2.MemoryKiB
	}
	if p.Threads == 0 {
		p.Threads = DefaultArgon2.Threads
	}
	return &Argon2Hasher{params: p}
}

func (h *Argon2Hasher) Digest(username domain.Username, password []byte) []byte {
	sum := sha256.Sum256([]byte(saltDomain + username.String()))
	return argon2.IDKey(password, sum[:16], h.params.Time, h.params.MemoryKiB, h.params.Threads, digestLen)
}

var _ domain.PasswordHasher = (*Argon2Hasher)(nil)
