// Package fstore implements store.IFileStore for any number of named databases.
//
// Each database keeps its files in a B-tree ordered by key, which serves the range
// queries (Get) and the reverse lookup (GetLast) without scanning. The databases
// themselves live in a concurrent map, so different databases never contend. Within
// one database readers share a read lock and Set holds the write lock for the
// complete write set.
//
// Persistence:
//
//	If a data directory is configured, every file is mirrored to
//
//	    <dataDir>/<database>/<key / hashDivider>/<key>
//
//	with the content [version uint32 LE][data]. Deleting a key removes the file.
//	The database version itself is not persisted: after a restart every database
//	starts at version 1 again. The filesystem is an afero.Fs, tests use a MemMapFs.
//
// Usage Example:
//
//	s, err := fstore.NewFileStore(fstore.Options{DataDir: "/var/lib/dfs", HashDivider: 1000})
//	db := s.Database("images")
//	err = db.Set(ctx, 1, []common.KeyValue{{Key: 1, Value: data}})
//	resp, err := db.Get(ctx, 0, 100)
package fstore
