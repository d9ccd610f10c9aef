package types

import "crypto/rsa"

// KeyPair is an RSA keypair usable with OAEP. The relay owns exactly one for
// its lifetime; clients keep their own.
type KeyPair struct {
	Public  *rsa.PublicKey
	Private *rsa.PrivateKey
}
