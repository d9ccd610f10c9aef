// Package message routes relayed messages between authenticated sessions.
//
// The router resolves the target username through the session directory and
// hands the payload to a Notifier, which seals it for the target's key and
// writes it to the target's connection. The payload was end-to-end
// encrypted by the sender and is never inspected here.
package message
