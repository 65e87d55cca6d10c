package udp

import (
	"errors"
	"fmt"
	"github.com/ValentinKolb/dFS/rpc/cipher"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/transport"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// MinRequestSize is the smallest datagram that can carry a request (prefix, nonce, opcode)
const MinRequestSize = PrefixSize + cipher.NonceSize + 1

// ServerTransport implements transport.IRPCServerTransport on a UDP socket.
// Every datagram is handled by its own worker, the number of concurrent workers is limited.
type ServerTransport struct {
	keys       transport.KeyLookupFunc
	handler    transport.ServerHandleFunc
	nonces     *cipher.NonceDeriver
	workers    int
	bufferPool *sync.Pool

	mu     sync.Mutex
	conn   *net.UDPConn
	closed atomic.Bool
	wg     sync.WaitGroup
}

var _ transport.IRPCServerTransport = (*ServerTransport)(nil)

// -----------------------------------------------------------
// Transport Factory Method
// -----------------------------------------------------------

// NewUDPServerTransport creates a new UDP server transport with at most workers concurrent handlers
func NewUDPServerTransport(workers int, opts ...cipher.NonceOption) *ServerTransport {
	// minimum one worker
	workers = max(workers, 1)

	return &ServerTransport{
		workers: workers,
		nonces:  cipher.NewNonceDeriver(opts...),
		bufferPool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, maxDatagramSize)
				return &buf
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *ServerTransport) RegisterHandler(keys transport.KeyLookupFunc, handler transport.ServerHandleFunc) {
	t.keys = keys
	t.handler = handler
}

func (t *ServerTransport) Listen(config common.ServerConfig) error {
	addr, err := net.ResolveUDPAddr("udp", config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", config.Endpoint, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	return t.Serve(conn)
}

func (t *ServerTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closed.Store(true)
	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}

// --------------------------------------------------------------------------
// Public Methods
// --------------------------------------------------------------------------

// Serve handles datagrams on conn until Close is called.
// It waits for all running workers before returning.
func (t *ServerTransport) Serve(conn *net.UDPConn) error {
	if t.keys == nil || t.handler == nil {
		return fmt.Errorf("no handler registered")
	}

	t.mu.Lock()
	if t.closed.Load() {
		t.mu.Unlock()
		_ = conn.Close()
		return nil
	}
	t.conn = conn
	t.mu.Unlock()

	Logger.Infof("Starting udp server on %s with %d workers", conn.LocalAddr(), t.workers)

	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.workers)
	defer t.wg.Wait()

	for {
		bufPtr := t.bufferPool.Get().(*[]byte)
		buf := *bufPtr
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			t.bufferPool.Put(bufPtr)
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				Logger.Infof("Stopped udp server")
				return nil
			}
			Logger.Errorf("Read error: %v", err)
			continue
		}

		if n < MinRequestSize {
			Logger.Debugf("Dropping datagram of %d bytes from %s", n, addr)
			t.bufferPool.Put(bufPtr)
			continue
		}

		workerSemaphore <- struct{}{}
		t.wg.Add(1)
		go func(bufPtr *[]byte, n int, addr *net.UDPAddr) {
			defer func() {
				t.bufferPool.Put(bufPtr)
				<-workerSemaphore
				t.wg.Done()
			}()
			t.handleDatagram(conn, (*bufPtr)[:n], addr)
		}(bufPtr, n, addr)
	}
}

// Addr returns the local address of the socket or nil if the server is not running
func (t *ServerTransport) Addr() net.Addr {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleDatagram decrypts one request, calls the handler and sends the encrypted reply.
// Datagrams that cannot be attributed to a user or decrypted are dropped silently.
func (t *ServerTransport) handleDatagram(conn *net.UDPConn, data []byte, addr *net.UDPAddr) {
	start := time.Now()
	prefix := data[:PrefixSize]

	key, err := t.keys(prefix)
	if err != nil {
		Logger.Warningf("Dropping datagram from %s: %v", addr, err)
		return
	}

	req, err := cipher.Open(key, data[PrefixSize:])
	if err != nil {
		Logger.Warningf("Dropping datagram from %s: %v", addr, err)
		return
	}

	resp := t.handler(prefix, req)

	seed, err := t.nonces.Seed()
	if err != nil {
		Logger.Errorf("Failed to create nonce: %v", err)
		return
	}
	sealed, err := cipher.Seal(key, seed, resp)
	if err != nil {
		Logger.Errorf("Failed to encrypt response: %v", err)
		return
	}

	if _, err := conn.WriteToUDP(sealed, addr); err != nil {
		Logger.Errorf("Failed to write response to %s: %v", addr, err)
		return
	}

	Logger.Debugf("Processed %d byte request from %s in %s", len(req), addr, time.Since(start))
}
