package crypto

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/hex"
	"strings"

	"relaychat/internal/domain"
)

// fingerprintBytes is how much of the SHA-256 digest a fingerprint shows.
const fingerprintBytes = 16

// PublicKeyFingerprint hashes the PKIX DER encoding of pub and renders the
// first 16 bytes as eight space-separated groups of four hex digits, which is
// easy to read aloud when comparing keys out of band.
func PublicKeyFingerprint(pub *rsa.PublicKey) (domain.Fingerprint, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(der)
	digits := hex.EncodeToString(sum[:fingerprintBytes])

	groups := make([]string, 0, len(digits)/4)
	for i := 0; i < len(digits); i += 4 {
		groups = append(groups, digits[i:i+4])
	}
	return domain.Fingerprint(strings.Join(groups, " ")), nil
}
