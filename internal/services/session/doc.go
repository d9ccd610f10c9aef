// Package session tracks live protocol sessions.
//
// The Registry maps a transport-assigned session id to its handshake state:
// the client public key, the issued MAC challenge, and the authenticated
// username. A secondary index from username to session id answers presence
// queries and enforces that one username is online on at most one session.
// Both maps are guarded by a single lock, so they never disagree.
//
// Callers receive copies of session state. No cryptographic work happens
// while the lock is held.
package session
