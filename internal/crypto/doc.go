// Package crypto exposes the minimal primitives used by the relay and its
// client.
//
// Contents
//
//   - RSA key generation for OAEP (GenerateRSA)
//   - PEM encoding of public and private keys (MarshalPublicKey,
//     ParsePublicKey, MarshalPrivateKey, ParsePrivateKey)
//   - Short public-key fingerprints for display/logging (Fingerprint,
//     PublicKeyFingerprint)
//   - Standard base64 helpers used by the envelope codec (B64, FromB64)
//
// # Notes
//
// ParsePublicKey is the only function fed with untrusted input. It accepts
// PKIX ("PUBLIC KEY") and PKCS#1 ("RSA PUBLIC KEY") PEM blocks, or the bare DER
// of either, and reports everything else as ErrKeyFormat.
package crypto
