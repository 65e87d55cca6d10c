// Package transport defines the interfaces for the communication between the
// file store client and server. Implementations own the socket and the
// encryption of every datagram, the layers above only see plaintext.
//
// Key Components:
//
//   - IRPCClientTransport: Interface for client-side transports. Send performs a
//     single encrypted request/response round trip.
//
//   - IRPCServerTransport: Interface for server-side transports that decrypt
//     incoming requests, pass them to the handler and encrypt the replies.
//
//   - ServerHandleFunc / KeyLookupFunc: Callbacks registered by the server.
//
// The only implementation is the udp subpackage.
package transport
