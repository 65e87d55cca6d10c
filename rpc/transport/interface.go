package transport

import (
	"context"
	"github.com/ValentinKolb/dFS/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request was received and decrypted
// It takes the unencrypted datagram prefix and the plaintext request and returns the plaintext response
type ServerHandleFunc func(prefix []byte, req []byte) (resp []byte)

// KeyLookupFunc returns the key that belongs to the datagram prefix
type KeyLookupFunc func(prefix []byte) (key []byte, err error)

// IRPCServerTransport is the interface for the RPC server transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers the key lookup and the request handler for the transport layer
	RegisterHandler(keys KeyLookupFunc, handler ServerHandleFunc)
	// Listen starts the transport layer and serves incoming requests until Close is called
	Listen(config common.ServerConfig) error
	// Close stops the transport layer
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send encrypts and sends a request to the server and returns the decrypted response.
	// It performs exactly one round trip and never retries.
	Send(ctx context.Context, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
