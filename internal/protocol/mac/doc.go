// Package mac issues and verifies the per-session challenge token.
//
// After a client presents its public key the server issues a fresh random
// token and sends it encrypted to that key. Only the holder of the matching
// private key can recover it, and every later command must carry it inside
// its encrypted payload. The token binds commands to the session that
// completed the key exchange; it is not a message authentication code in the
// cryptographic sense.
package mac
