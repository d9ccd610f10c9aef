// Package account implements login and registration against the credential
// store.
//
// Usernames are normalised with the PRECIS UsernameCasePreserved profile
// before any lookup, so visually identical names written with different
// Unicode forms map to one account. Passwords are reduced to a deterministic
// argon2id digest and the caller's buffer is wiped; the store never sees a
// raw password.
//
// Presence (whether a user is already online) is not decided here: the
// protocol handler combines a successful Login with the session registry.
package account
