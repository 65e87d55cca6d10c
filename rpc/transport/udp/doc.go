// Package udp implements the transport interfaces on plain UDP sockets.
//
// Every request is a single datagram:
//
//	[4 bytes user id, little endian] [12 bytes wire nonce] [ciphertext]
//
// and every response is
//
//	[12 bytes wire nonce] [ciphertext]
//
// The payload is encrypted with ChaCha20 under a fresh seed, the wire carries the
// masked seed (see the cipher package). There is no request id: the client holds a
// lock for the complete round trip and treats the next datagram as the answer.
// Lost datagrams are not retried, the caller sees a timeout.
//
// The server side handles each datagram in a worker goroutine. Datagrams that are
// too short, come from unknown users or cannot be decrypted are dropped without a reply.
package udp
