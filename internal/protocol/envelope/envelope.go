package envelope

import (
	stdcrypto "crypto"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha1" // registers SHA-1 for the default OAEP hash
	"encoding/json"
	"errors"
	"fmt"

	"relaychat/internal/crypto"
)

const (
	// DefaultChunkSize is the largest plaintext slice put into one chunk.
	// It is lowered automatically when the target key cannot carry it.
	DefaultChunkSize = 400

	// DefaultHash is the OAEP hash deployed clients use.
	DefaultHash = stdcrypto.SHA1
)

// ErrDecryption is returned when an envelope is malformed or any chunk fails
// to decrypt.
var ErrDecryption = errors.New("envelope decryption failed")

// Envelope is an ordered list of base64 ciphertext chunks.
type Envelope []string

// Codec splits, encrypts, decrypts and joins envelopes.
type Codec struct {
	ChunkSize int
	Hash      stdcrypto.Hash
}

// New returns a Codec with the given chunk size (DefaultChunkSize if <= 0)
// and the default OAEP hash.
func New(chunkSize int) *Codec {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Codec{ChunkSize: chunkSize, Hash: DefaultHash}
}

func (c *Codec) hash() stdcrypto.Hash {
	if c.Hash == 0 {
		return DefaultHash
	}
	return c.Hash
}

// MaxChunk returns the chunk size used for pub: the configured size clamped
// to the OAEP plaintext bound of the key.
func (c *Codec) MaxChunk(pub *rsa.PublicKey) int {
	bound := pub.Size() - 2*c.hash().Size() - 2
	if c.ChunkSize > 0 && c.ChunkSize < bound {
		return c.ChunkSize
	}
	return bound
}

// Encode splits plaintext and encrypts each chunk for pub. An empty plaintext
// produces a single chunk so the wire form is never an empty array.
func (c *Codec) Encode(pub *rsa.PublicKey, plaintext []byte) (Envelope, error) {
	if pub == nil {
		return nil, errors.New("envelope: nil public key")
	}
	size := c.MaxChunk(pub)
	if size <= 0 {
		return nil, fmt.Errorf("envelope: %d-bit key too small for OAEP", pub.N.BitLen())
	}

	n := (len(plaintext) + size - 1) / size
	if n == 0 {
		n = 1
	}
	out := make(Envelope, 0, n)
	for off := 0; off < len(plaintext) || len(out) == 0; off += size {
		end := min(off+size, len(plaintext))
		ct, err := rsa.EncryptOAEP(c.hash().New(), rand.Reader, pub, plaintext[off:end], nil)
		if err != nil {
			return nil, fmt.Errorf("envelope: encrypt chunk %d: %w", len(out), err)
		}
		out = append(out, crypto.B64(ct))
	}
	return out, nil
}

// Decode decrypts every chunk with priv and joins the plaintexts in order.
func (c *Codec) Decode(priv *rsa.PrivateKey, env Envelope) ([]byte, error) {
	if priv == nil {
		return nil, errors.New("envelope: nil private key")
	}
	if len(env) == 0 {
		return nil, fmt.Errorf("%w: empty envelope", ErrDecryption)
	}
	var out []byte
	for i, chunk := range env {
		ct, err := crypto.FromB64(chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrDecryption, i, err)
		}
		pt, err := rsa.DecryptOAEP(c.hash().New(), nil, priv, ct, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: chunk %d: %v", ErrDecryption, i, err)
		}
		out = append(out, pt...)
	}
	if out == nil {
		out = []byte{}
	}
	return out, nil
}

// Parse reads an envelope from its JSON wire form.
func Parse(raw json.RawMessage) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	if len(env) == 0 {
		return nil, fmt.Errorf("%w: empty envelope", ErrDecryption)
	}
	return env, nil
}

// Seal JSON-encodes v and encrypts it for pub.
func (c *Codec) Seal(pub *rsa.PublicKey, v any) (Envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return c.Encode(pub, b)
}

// Open parses raw as an envelope, decrypts it and JSON-decodes the plaintext
// into v.
func (c *Codec) Open(priv *rsa.PrivateKey, raw json.RawMessage, v any) error {
	env, err := Parse(raw)
	if err != nil {
		return err
	}
	pt, err := c.Decode(priv, env)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(pt, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecryption, err)
	}
	return nil
}
