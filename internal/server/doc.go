// Package server implements the relay protocol over WebSocket.
//
// The Handler is the protocol state machine. Each inbound event is looked up
// in a route table; a route is an ordered list of gates followed by the
// event's business logic. Gates either pass, possibly rewriting the request
// payload, or fail with a *GateError that is reported to the client as an
// error event. Routes:
//
//	event          gates        reply
//	sendPublicKey  unauth       sendMac (envelope of the issued challenge)
//	login          mac          login
//	register       mac          register
//	logout         mac, auth    logout
//	onlineUsers    mac, auth    onlineUsers
//	userPublicKey  mac, auth    userPublicKey
//	message        mac, auth    messageResult (and loadMessage to the target)
//
// The mac gate decrypts the envelope with the server's private key and checks
// the challenge carried inside it; the auth gate requires a logged-in
// session. Every reply after the handshake is sealed for the session's
// client key. Error events are sealed when a client key is known and sent as
// plain JSON otherwise.
//
// A failing or panicking handler is contained to its own event: it is logged,
// reported as InternalError and the connection keeps being served.
//
// The Server owns the transport. It upgrades HTTP requests to WebSocket,
// assigns each connection a session id, synthesises connect and disconnect
// from the socket lifecycle and feeds every text frame of the form
//
//	{"event": "<name>", "data": <json>}
//
// to the Handler in arrival order. Writes to a connection are serialised by
// a per-connection lock, so relayed messages from other sessions never
// interleave with the owner's replies.
package server
