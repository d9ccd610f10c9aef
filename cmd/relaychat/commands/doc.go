// Package commands defines the relaychat CLI and wires dependencies for
// subcommands.
//
// Commands
//
//   - init         Create the local keypair and print its fingerprint
//   - fingerprint  Print the local and, with --relay, the relay fingerprint
//   - register     Create an account on a relay
//   - online       List the users currently online
//   - send         Encrypt a message to a user and relay it
//   - listen       Log in and print incoming messages until interrupted
//
// # Implementation
//
// The root command resolves the home directory and builds an
// app.ClientConfig before any subcommand runs. Commands that talk to a relay
// dial it, complete the key exchange, log in with --user and the password
// from --password or $RELAYCHAT_PASSWORD, and close the connection when
// done. The keypair lives under <home>/keys and is sealed with --passphrase
// when one is given.
package commands
