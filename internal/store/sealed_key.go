package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const sealedKeyVersion = 1

var errWrongPassphrase = errors.New("wrong passphrase or corrupted private key")

// ScryptParams are the key derivation costs used when sealing a private key.
// They are recorded next to the ciphertext, so changing them only affects
// keys sealed afterwards.
type ScryptParams struct {
	N int `json:"n"`
	R int `json:"r"`
	P int `json:"p"`
}

// DefaultScrypt is the cost used unless a store is configured otherwise.
var DefaultScrypt = ScryptParams{N: 1 << 15, R: 8, P: 1}

func (p ScryptParams) derive(passphrase, salt []byte) ([]byte, error) {
	return scrypt.Key(passphrase, salt, p.N, p.R, p.P, chacha20poly1305.KeySize)
}

// sealedKey is the body of a SEALED PRIVATE KEY block. The PKCS#8 PEM is
// encrypted with XChaCha20-Poly1305 under a scrypt key; the salt doubles as
// associated data.
type sealedKey struct {
	Version    int          `json:"version"`
	KDF        ScryptParams `json:"kdf"`
	Salt       []byte       `json:"salt"`
	Nonce      []byte       `json:"nonce"`
	Ciphertext []byte       `json:"ciphertext"`
}

func seal(passphrase, plain []byte, kdf ScryptParams) ([]byte, error) {
	sk := sealedKey{
		Version: sealedKeyVersion,
		KDF:     kdf,
		Salt:    make([]byte, 16),
		Nonce:   make([]byte, chacha20poly1305.NonceSizeX),
	}
	if _, err := rand.Read(sk.Salt); err != nil {
		return nil, err
	}
	if _, err := rand.Read(sk.Nonce); err != nil {
		return nil, err
	}

	key, err := kdf.derive(passphrase, sk.Salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	sk.Ciphertext = aead.Seal(nil, sk.Nonce, plain, sk.Salt)
	return json.Marshal(sk)
}

func unseal(passphrase, body []byte) ([]byte, error) {
	var sk sealedKey
	if err := json.Unmarshal(body, &sk); err != nil {
		return nil, fmt.Errorf("sealed key: %w", err)
	}
	if sk.Version != sealedKeyVersion {
		return nil, fmt.Errorf("sealed key: unsupported version %d", sk.Version)
	}
	if len(sk.Nonce) != chacha20poly1305.NonceSizeX {
		return nil, errors.New("sealed key: bad nonce")
	}

	key, err := sk.KDF.derive(passphrase, sk.Salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plain, err := aead.Open(nil, sk.Nonce, sk.Ciphertext, sk.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return plain, nil
}
