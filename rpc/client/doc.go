// Package client implements the RPC client of the dFS file store.
// RPCFileStore implements the store.IFileStore interface for one remote database
// and communicates with the server through the transport and serializer layers.
//
// The package focuses on:
//   - Transparent access to a remote database through store.IFileStore
//   - Integration with the transport and serialization layers
//   - Conversion of status tags into typed errors (common.Error)
//
// Key Components:
//
//   - NewRPCFileStore: Factory function that connects the transport and creates the client.
//
//   - Future: Result of the asynchronous variants (GetAsync, GetLastAsync,
//     GetFileVersionAsync, SetAsync), which run the synchronous call in a goroutine.
//
// Usage Example:
//
//	config := common.ClientConfig{
//	  Endpoint:           "localhost:59999",
//	  UserID:             1,
//	  Key:                key,
//	  DBName:             "images",
//	  TimeoutMillisecond: 1000,
//	}
//
//	fs, err := client.NewRPCFileStore(config, udp.NewUDPClientTransport(), serializer.NewBinarySerializer())
//	if err != nil {
//	  panic(err)
//	}
//	defer fs.Close()
//
//	resp, err := fs.Get(ctx, 1, 5)
//	err = fs.Set(ctx, resp.DBVersion, []common.KeyValue{{Key: 6, Value: data}})
//	if errors.Is(err, common.ErrProtocol) {
//	  // e.g. "version mismatch", reload and retry
//	}
//
// Errors:
//
//	common.ErrTimeout: no response within the configured timeout
//	common.ErrFraming: the response had the wrong length
//	common.ErrProtocol: the server answered with an error message
//	common.ErrUnrecognizedStatus: the server answered with an unknown status
//
// Thread Safety:
//
//	The client can be used from multiple goroutines, but the transport executes one
//	round trip at a time. Concurrent calls (including the asynchronous variants) are
//	therefore serialized.
package client
