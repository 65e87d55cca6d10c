// Package common provides core data structures and utilities shared across
// the dFS client, server and tools. It defines fundamental types,
// configuration structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - Message definition for all four file store operations
//   - The typed error taxonomy of the protocol (timeout, framing, protocol, status)
//   - Configuration structures for client and server components
//   - Custom logging implementation based on the Dragonboat logger package
//
// Key Components:
//
//   - Message: Core data structure for every request and response. Which fields
//     are used depends on the OpCode and on the direction. Includes factory
//     methods for creating the various request and response messages.
//
//   - OpCode / Status: The single byte selecting an operation and the leading
//     status tag of every decrypted response.
//
//   - Error: Failure value returned by all layers. Its ErrCode distinguishes
//     ErrCTimeout, ErrCFraming, ErrCProtocol and ErrCUnrecognizedStatus, and the
//     sentinels ErrTimeout, ErrFraming, ... can be used with errors.Is.
//
//   - ClientConfig / ServerConfig: Configuration for the client (endpoint, user,
//     key, database, timeout) and for the reference server (users, storage).
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
