// Package commands defines the relay server CLI.
//
// Commands
//
//   - serve        Run the relay until SIGINT or SIGTERM
//   - keygen       Create the server keypair ahead of first start
//   - fingerprint  Print the server key fingerprint for out-of-band checks
package commands
