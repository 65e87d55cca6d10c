// Package server implements the reference server of the dFS file store.
// It decodes the requests delivered by a transport, enforces the database access
// rights of the users and executes the requests against an fstore.Store.
//
// Key Components:
//
//   - IRPCServerAdapter: Interface defining the contract for server adapters,
//     with the Handle method that processes a request against a store.IFileStore.
//
//   - NewFileStoreServerAdapter: Factory function creating the adapter that
//     translates requests to store.IFileStore method calls.
//
//   - NewRPCServer: Factory function creating a configured server with the specified
//     transport and serializer mechanisms.
//
// Access Control:
//
//	Every user has an id (the unencrypted datagram prefix), a key and a map of
//	database names to access modes. "r" allows Get, GetLast and GetFileVersion,
//	"rw" additionally allows Set. A denied request is answered with
//	"Database access error. User <name> Database name <db>".
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoint:    "0.0.0.0:59999",
//	  DataDir:     "/var/lib/dfs",
//	  HashDivider: 1000,
//	  Workers:     8,
//	  Users: []common.UserConfig{
//	    {ID: 1, Name: "alice", KeyFile: "alice.key", Databases: map[string]string{"images": "rw"}},
//	  },
//	}
//
//	s := server.NewRPCServer(
//	  config,
//	  udp.NewUDPServerTransport(config.Workers),
//	  serializer.NewBinarySerializer(),
//	)
//	if err := s.Serve(); err != nil {
//	  panic(err)
//	}
//
// The server exposes request counters and latency histograms (dfs_server_*) on the
// optional metrics endpoint.
package server
