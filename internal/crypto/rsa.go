package crypto

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"relaychat/internal/domain"
)

const (
	// MinKeyBits is the smallest modulus accepted from peers.
	MinKeyBits = 1024

	pemPublicKey     = "PUBLIC KEY"
	pemRSAPublicKey  = "RSA PUBLIC KEY"
	pemPrivateKey    = "PRIVATE KEY"
	pemRSAPrivateKey = "RSA PRIVATE KEY"
)

var (
	// ErrKeyFormat is returned when a public key cannot be parsed or is not
	// a usable RSA key.
	ErrKeyFormat = errors.New("malformed public key")
)

// GenerateRSA returns a fresh RSA keypair of the given modulus size.
func GenerateRSA(bits int) (domain.KeyPair, error) {
	if bits < MinKeyBits {
		return domain.KeyPair{}, fmt.Errorf("rsa key size %d below minimum %d", bits, MinKeyBits)
	}
	priv, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return domain.KeyPair{}, err
	}
	return domain.KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}

// MarshalPublicKey encodes pub as a PKIX PEM block.
func MarshalPublicKey(pub *rsa.PublicKey) ([]byte, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPublicKey, Bytes: der}), nil
}

// ParsePublicKey decodes an RSA public key from PEM or DER.
func ParsePublicKey(raw []byte) (*rsa.PublicKey, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrKeyFormat)
	}

	der := raw
	if block, _ := pem.Decode(raw); block != nil {
		switch block.Type {
		case pemPublicKey, pemRSAPublicKey:
			der = block.Bytes
		default:
			return nil, fmt.Errorf("%w: unexpected PEM block %q", ErrKeyFormat, block.Type)
		}
	}

	pub, err := parsePublicDER(der)
	if err != nil {
		return nil, err
	}
	if pub.N.BitLen() < MinKeyBits {
		return nil, fmt.Errorf("%w: %d-bit key below minimum %d", ErrKeyFormat, pub.N.BitLen(), MinKeyBits)
	}
	return pub, nil
}

func parsePublicDER(der []byte) (*rsa.PublicKey, error) {
	if key, err := x509.ParsePKIXPublicKey(der); err == nil {
		pub, ok := key.(*rsa.PublicKey)
		if !ok {
			return nil, fmt.Errorf("%w: not an RSA key (%T)", ErrKeyFormat, key)
		}
		return pub, nil
	}
	pub, err := x509.ParsePKCS1PublicKey(der)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyFormat, err)
	}
	return pub, nil
}

// MarshalPrivateKey encodes priv as a PKCS#8 PEM block.
func MarshalPrivateKey(priv *rsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemPrivateKey, Bytes: der}), nil
}

// ParsePrivateKey decodes a PKCS#8 or PKCS#1 PEM private key.
func ParsePrivateKey(raw []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(bytes.TrimSpace(raw))
	if block == nil {
		return nil, errors.New("no PEM block in private key")
	}
	switch block.Type {
	case pemPrivateKey:
		key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, err
		}
		priv, ok := key.(*rsa.PrivateKey)
		if !ok {
			return nil, fmt.Errorf("private key is %T, want RSA", key)
		}
		return priv, nil
	case pemRSAPrivateKey:
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("unexpected PEM block %q", block.Type)
	}
}

// SamePublicKey reports whether a and b are the same RSA public key.
func SamePublicKey(a, b *rsa.PublicKey) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Equal(b)
}
