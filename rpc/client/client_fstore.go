package client

import (
	"context"
	"github.com/ValentinKolb/dFS/lib/store"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport"
)

// NewRPCFileStore creates a new RPC file store for the database in config.DBName
// The function takes a config, a transport and a serializer as parameters
// It connects the transport and returns the client or an error
func NewRPCFileStore(
	config common.ClientConfig,
	transport transport.IRPCClientTransport,
	serializer serializer.IRPCSerializer,
) (*RPCFileStore, error) {

	// Connect the transport
	err := transport.Connect(config)
	if err != nil {
		return nil, err
	}

	// Create a new RPC file store
	s := RPCFileStore{
		rpcClientAdapter{
			config:     config,
			transport:  transport,
			serializer: serializer,
			metrics:    common.NewOpMetrics("dfs_client"),
		},
	}

	// Return the RPC file store
	return &s, nil
}

// RPCFileStore implements store.IFileStore for a remote database.
// Every method is exactly one encrypted round trip, nothing is retried.
type RPCFileStore struct {
	rpcClientAdapter
}

var _ store.IFileStore = (*RPCFileStore)(nil)

// --------------------------------------------------------------------------
// Interface Methods (docu see the store package in interface.go)
// --------------------------------------------------------------------------

func (c *RPCFileStore) Get(ctx context.Context, key1, key2 uint32) (common.GetResponse, error) {
	req := common.NewGetRequest(c.config.DBName, key1, key2)
	resp, err := c.invokeRPCRequest(ctx, req)
	if err != nil {
		return common.GetResponse{}, err
	}

	data := make(map[uint32]common.File, len(resp.Files))
	for _, f := range resp.Files {
		data[f.Key] = f.File
	}
	return common.GetResponse{DBVersion: resp.DBVersion, Data: data}, nil
}

func (c *RPCFileStore) GetLast(ctx context.Context, key1, key2 uint32) (common.GetLastResponse, error) {
	req := common.NewGetLastRequest(c.config.DBName, key1, key2)
	resp, err := c.invokeRPCRequest(ctx, req)
	if err != nil {
		return common.GetLastResponse{}, err
	}

	result := common.GetLastResponse{DBVersion: resp.DBVersion}
	if len(resp.Files) > 0 {
		last := resp.Files[0]
		result.Last = &last
	}
	return result, nil
}

func (c *RPCFileStore) GetFileVersion(ctx context.Context, key uint32) (common.GetFileVersionResponse, error) {
	req := common.NewGetFileVersionRequest(c.config.DBName, key)
	resp, err := c.invokeRPCRequest(ctx, req)
	if err != nil {
		return common.GetFileVersionResponse{}, err
	}
	return common.GetFileVersionResponse{
		DBVersion:   resp.DBVersion,
		FileVersion: resp.FileVersion,
		Found:       resp.FileVersion != 0,
	}, nil
}

func (c *RPCFileStore) Set(ctx context.Context, dbVersion uint32, values []common.KeyValue) error {
	req := common.NewSetRequest(c.config.DBName, dbVersion, values)
	_, err := c.invokeRPCRequest(ctx, req)
	return err
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Metrics returns the request metrics of the client
func (c *RPCFileStore) Metrics() *common.OpMetrics {
	return c.metrics
}

// Close closes the underlying transport
func (c *RPCFileStore) Close() error {
	return c.transport.Close()
}
