// Package app wires the relay's dependencies and runs it.
//
// Config is read from TOML and completed by FixupAndValidate. NewWire builds
// the concrete stores, services and protocol handler from it, and App runs
// the WebSocket listener plus the optional metrics listener until its
// context is cancelled. ClientConfig and DialClient do the same for the
// relaychat CLI: they load or create the user's keypair under the CLI home
// directory and connect to a relay.
package app
