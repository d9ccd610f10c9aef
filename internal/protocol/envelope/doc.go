// Package envelope implements the chunked RSA-OAEP wire envelope.
//
// RSA can only encrypt a bounded plaintext per operation (k - 2*hLen - 2
// bytes with OAEP, where k is the modulus size in bytes). Application
// messages are therefore split into chunks no larger than that bound, each
// chunk is encrypted independently, and the ciphertexts are carried as a JSON
// array of standard base64 strings in split order:
//
//	["<b64 chunk 0>", "<b64 chunk 1>", ...]
//
// Decoding reverses the process and concatenates the chunk plaintexts in
// array order. Chunks carry no integrity beyond OAEP itself; command payloads
// are bound to a session by the MAC carried inside the plaintext, not by the
// envelope.
package envelope
