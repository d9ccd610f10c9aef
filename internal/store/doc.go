// Package store provides persistence for the relay's key material and
// registered accounts.
//
// It contains concrete implementations of the domain storage interfaces.
// All methods are concurrency-safe, either via internal locking or via the
// transactions of the underlying database.
//
// The package includes stores for:
//   - The RSA keypair as public.pem / private.pem (KeyFileStore), with the
//     private half optionally sealed under a passphrase (scrypt +
//     ChaCha20-Poly1305)
//   - Accounts in bbolt (BoltAccountStore), badger (BadgerAccountStore) or
//     process memory (MemoryAccountStore), selected by OpenAccountStore
//
// Files are replaced atomically: written to a temp file in the same
// directory, synced, then renamed over the target.
package store
