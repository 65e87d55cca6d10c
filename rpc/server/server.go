package server

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dFS/lib/store/fstore"
	"github.com/ValentinKolb/dFS/rpc/cipher"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport"
	"github.com/VictoriaMetrics/metrics"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/spf13/afero"
	"net/http"
	"time"
)

var Logger = logger.GetLogger("rpc")

// ServerOption configures optional parts of the server
type ServerOption func(s *RPCServer)

// WithFs sets the filesystem used for key files and persistence (default: OS filesystem)
func WithFs(fs afero.Fs) ServerOption {
	return func(s *RPCServer) {
		s.fs = fs
	}
}

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		udp.NewUDPServerTransport(config.Workers),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
	opts ...ServerOption,
) *RPCServer {
	s := &RPCServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		adapter:    NewFileStoreServerAdapter(),
		users:      xsync.NewMapOf[uint32, common.UserConfig](),
		metrics:    common.NewOpMetrics("dfs_server"),
		fs:         afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(s)
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return s
}

// RPCServer answers file store requests of the configured users
type RPCServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	adapter    IRPCServerAdapter
	users      *xsync.MapOf[uint32, common.UserConfig]
	store      *fstore.Store
	metrics    *common.OpMetrics
	fs         afero.Fs
	httpServer *http.Server
}

// Serve starts the RPC server
// This function will also initialize the users and the store and start the transport layer
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}

	if s.config.MetricsEndpoint != "" {
		s.serveMetrics()
	}

	return s.transport.Listen(s.config)
}

// Close stops the transport layer and the metrics endpoint
func (s *RPCServer) Close() error {
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	return s.transport.Close()
}

// Metrics returns the request metrics of the server
func (s *RPCServer) Metrics() *common.OpMetrics {
	return s.metrics
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *RPCServer) init() error {
	if err := s.config.Validate(); err != nil {
		return err
	}

	// Load the users and their keys
	for _, user := range s.config.Users {
		if len(user.Key) == 0 {
			key, err := cipher.LoadKey(s.fs, user.KeyFile)
			if err != nil {
				return fmt.Errorf("user %s: %w", user.Name, err)
			}
			user.Key = key
		} else if len(user.Key) != cipher.KeySize {
			return fmt.Errorf("user %s: invalid key size %d", user.Name, len(user.Key))
		}
		s.users.Store(user.ID, user)
		Logger.Infof("Loaded user %d (%s) with access to %d databases", user.ID, user.Name, len(user.Databases))
	}

	// Create the store
	st, err := fstore.NewFileStore(fstore.Options{
		Fs:          s.fs,
		DataDir:     s.config.DataDir,
		HashDivider: s.config.HashDivider,
	})
	if err != nil {
		return err
	}
	s.store = st

	Logger.Infof("dFS setup completed successfully")

	// Configure the transport layer
	s.transport.RegisterHandler(s.lookupKey, s.handle)
	return nil
}

// lookupKey returns the key of the user identified by the datagram prefix
func (s *RPCServer) lookupKey(prefix []byte) ([]byte, error) {
	id := binary.LittleEndian.Uint32(prefix)
	user, ok := s.users.Load(id)
	if !ok {
		return nil, fmt.Errorf("unknown user %d", id)
	}
	return user.Key, nil
}

// handle processes one decrypted request. Every failure is answered with an error response.
func (s *RPCServer) handle(prefix []byte, req []byte) []byte {
	start := time.Now()

	var msg common.Message
	respMsg := s.process(prefix, req, &msg)

	// Record the request
	var err error
	if respMsg.Status != common.StatusOk {
		err = common.NewProtocolError(respMsg.Err)
		Logger.Debugf("Request %s on database %q failed: %s", msg.Op, msg.DBName, respMsg.Err)
	}
	s.metrics.Observe(msg.Op, start, err)

	// Return result
	val, err := s.serializer.SerializeResponse(*respMsg)
	if err != nil {
		val, _ = s.serializer.SerializeResponse(*common.NewErrorResponse(msg.Op,
			fmt.Sprintf("failed to serialize response: %s", err),
		))
	}
	return val
}

// process decodes the request, checks the access rights and lets the adapter handle it
func (s *RPCServer) process(prefix []byte, req []byte, msg *common.Message) *common.Message {
	// Decode the request
	if err := s.serializer.DeserializeRequest(req, msg); err != nil {
		if len(req) > 0 {
			msg.Op = common.OpCode(req[0])
		}
		return common.NewErrorResponse(msg.Op, fmt.Sprintf("failed to deserialize request: %s", err))
	}

	user, ok := s.users.Load(binary.LittleEndian.Uint32(prefix))
	if !ok {
		return common.NewErrorResponse(msg.Op, "unknown user")
	}

	// Check the access rights
	allowed := user.CanRead(msg.DBName)
	if msg.Op == common.OpSet {
		allowed = user.CanWrite(msg.DBName)
	}
	if !allowed {
		return common.NewErrorResponse(msg.Op,
			fmt.Sprintf("Database access error. User %s Database name %s", user.Name, msg.DBName),
		)
	}

	// Let the adapter handle the request
	return s.adapter.Handle(context.Background(), msg, s.store.Database(msg.DBName))
}

// serveMetrics exposes the server and process metrics in the Prometheus format
func (s *RPCServer) serveMetrics() {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, _ *http.Request) {
		s.metrics.WritePrometheus(w)
		metrics.WritePrometheus(w, true)
	})
	s.httpServer = &http.Server{Addr: s.config.MetricsEndpoint, Handler: mux}

	go func() {
		Logger.Infof("Starting metrics endpoint on http://%s/metrics", s.config.MetricsEndpoint)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			Logger.Errorf("Metrics endpoint failed: %v", err)
		}
	}()
}
