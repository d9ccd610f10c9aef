// Package main runs the relay server: a WebSocket endpoint through which
// authenticated clients exchange end-to-end encrypted messages.
//
// Protocol
//
//	connect                    server sends sendPublicKey (its PEM key, plain)
//	sendPublicKey  <PEM>       server stores it, replies sendMac (challenge
//	                           encrypted to the client key)
//	register/login {username, password}
//	logout
//	onlineUsers                list of {username, id}, excluding the caller
//	userPublicKey  {username}
//	message        {message, username, id}
//	                           target receives loadMessage {message, from};
//	                           sender receives messageResult
//
// Every command after the handshake is an envelope (JSON array of base64
// RSA-OAEP chunks) encrypted to the server key, whose plaintext is
// {"mac": <challenge>, "data": <command>}. Replies are envelopes encrypted to
// the client key. Failures arrive as error events {type, message}.
//
// Behaviour
//
//   - Messages are relayed only while both parties are connected; nothing is
//     persisted except accounts and the server keypair.
//   - The keypair is created on first start under Keys.Dir and reused after.
//     Clients pin it on first contact, so compare fingerprints out of band.
//   - Accounts live in bbolt by default, or badger or memory.
//   - The default listen address is :8084; prometheus metrics are served on
//     Server.MetricsListen when set.
package main
