// Package relay provides a WebSocket client for the relay protocol, used by
// the relaychat CLI.
//
// Dial performs the handshake: it receives the server's public key in plain
// text, presents the client's own key and recovers the MAC challenge the
// server encrypts to it. Every later request is wrapped with that challenge
// and encrypted to the server key; every reply is decrypted with the
// client's private key.
//
// Supported operations include:
//   - Registering an account or logging in, and logging out.
//   - Listing the other users online.
//   - Fetching a user's public key.
//   - Sending a text message, end-to-end encrypted to the recipient's key
//     before it is handed to the relay.
//   - Receiving messages relayed to us, via the Messages channel.
//
// Requests are serialised: one is in flight at a time and replies are
// matched to it in order. Error events from the server surface as
// *ProtocolError; refusals such as a taken username wrap ErrRejected.
//
// The client trusts the server key it receives on first contact. Compare
// ServerFingerprint with a fingerprint obtained out of band before sending
// anything sensitive.
package relay
