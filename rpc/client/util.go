package client

import (
	"context"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"time"
)

var (
	Logger = logger.GetLogger("rpc")
)

// rpcClientAdapter is a struct that stores all data needed for an implementation of an RPC client
// Used by the RPCFileStore with composition pattern
type rpcClientAdapter struct {
	config     common.ClientConfig
	transport  transport.IRPCClientTransport
	serializer serializer.IRPCSerializer
	metrics    *common.OpMetrics
}

// invokeRPCRequest is a helper function used for all RPC Clients to send requests
// It takes a request message and returns the decoded response message or an error
// A response with status error becomes a protocol error, any other non ok status an unrecognized status error
func (a *rpcClientAdapter) invokeRPCRequest(ctx context.Context, req *common.Message) (resp *common.Message, err error) {
	start := time.Now()
	defer func() {
		a.metrics.Observe(req.Op, start, err)
		if err != nil {
			Logger.Debugf("Request %s on database %q failed after %s: %v", req.Op, req.DBName, time.Since(start), err)
		}
	}()

	// Serialize the request
	reqBytes, err := a.serializer.SerializeRequest(*req)
	if err != nil {
		return nil, err
	}

	// Send the request
	respBytes, err := a.transport.Send(ctx, reqBytes)
	if err != nil {
		return nil, err
	}

	// Deserialize the response
	resp = &common.Message{}
	if err := a.serializer.DeserializeResponse(req.Op, respBytes, resp); err != nil {
		return nil, err
	}

	// Check if the response is an error response
	switch resp.Status {
	case common.StatusOk:
		return resp, nil
	case common.StatusError:
		return nil, common.NewProtocolError(resp.Err)
	default:
		return nil, common.NewUnrecognizedStatusError(resp.Status)
	}
}
