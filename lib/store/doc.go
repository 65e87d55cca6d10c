// Package store provides the interface for versioned file databases.
//
// A database is a set of files addressed by uint32 keys. The database has a version
// that every successful write increments, and each file carries its own version.
// Writes are optimistic: the caller passes the database version it has seen and the
// write is rejected with "version mismatch" if another write happened in between.
//
// Key Components:
//
//   - IFileStore Interface: Get, GetLast, GetFileVersion and Set on one database.
//     The interface is implemented by the local store (one database view of an
//     fstore.Store) and by the RPC client (rpc/client), so code written against it
//     runs unchanged against a local or a remote database.
//
//   - Error System: Error carries a RetCode and the message that is sent to remote
//     callers verbatim.
//
// Implementations:
//
//	- File Store (fstore): An in-memory store with one ordered index per database
//	  and optional persistence to a directory tree.
//	  Available in the "github.com/ValentinKolb/dFS/lib/store/fstore" package.
//
//	- RPC Client: Talks to a remote server over the encrypted UDP protocol.
//	  Available in the "github.com/ValentinKolb/dFS/rpc/client" package.
package store
