// Package rpc provides the remote procedure call layer of the dFS file store.
// Every request is a single encrypted UDP datagram answered by a single
// encrypted datagram.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, the typed errors, configuration structures,
//     metrics and logging.
//
//   - cipher: ChaCha20 encryption of the payloads, nonce derivation and masking
//     and loading of the pre-shared user keys.
//
//   - transport: Network communication abstractions and the UDP implementation
//     for both client and server.
//
//   - serializer: Binary encoding of requests and responses, including the
//     bzip2 compression of stored file content.
//
//   - client: RPC client implementing the file store interface (Get, GetLast,
//     GetFileVersion, Set) on top of a transport, blocking and asynchronous.
//
//   - server: Reference server dispatching decoded requests to the file store
//     after checking the per-database access rights of the user.
package rpc
