// Package keys owns the long-lived RSA keypair and the public key wire
// format.
//
// On first start the keypair is generated and persisted; every later start
// loads the same pair, so clients that pinned the server key keep trusting
// it. Partial or corrupt key material is a fatal error, never silently
// replaced.
package keys
