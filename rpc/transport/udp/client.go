package udp

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dFS/rpc/cipher"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net"
	"os"
	"sync"
	"time"
)

var Logger = logger.GetLogger("transport/udp")

const (
	// PrefixSize is the size of the unencrypted user id in front of every request
	PrefixSize = 4
	// maxDatagramSize is the largest UDP payload
	maxDatagramSize = 65535
	// defaultTimeout is used if the config does not specify a timeout
	defaultTimeout = 1000 * time.Millisecond
)

// clientTransport implements transport.IRPCClientTransport over a single UDP socket
type clientTransport struct {
	config  common.ClientConfig
	conn    *net.UDPConn
	prefix  [PrefixSize]byte
	timeout time.Duration
	nonces  *cipher.NonceDeriver
	buf     []byte

	// There is no request id in the protocol, a response is assumed to belong
	// to the last request. mu serializes complete round trips.
	mu sync.Mutex
}

// -----------------------------------------------------------
// Transport Factory Method
// -----------------------------------------------------------

// NewUDPClientTransport creates a new UDP client transport.
// The options are passed to the nonce deriver (e.g. a fixed clock for tests).
func NewUDPClientTransport(opts ...cipher.NonceOption) transport.IRPCClientTransport {
	return &clientTransport{
		nonces: cipher.NewNonceDeriver(opts...),
		buf:    make([]byte, maxDatagramSize),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if len(config.Key) != cipher.KeySize {
		return fmt.Errorf("invalid key size %d, expected %d", len(config.Key), cipher.KeySize)
	}
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}

	addr, err := net.ResolveUDPAddr("udp", config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", config.Endpoint, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return fmt.Errorf("failed to create socket for %s: %w", config.Endpoint, err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Close an existing socket
	if t.conn != nil {
		_ = t.conn.Close()
	}

	t.config = config
	t.conn = conn
	binary.LittleEndian.PutUint32(t.prefix[:], config.UserID)
	t.timeout = time.Duration(config.TimeoutMillisecond) * time.Millisecond
	if t.timeout <= 0 {
		t.timeout = defaultTimeout
	}

	Logger.Debugf("Created socket %s -> %s (timeout %s)", conn.LocalAddr(), addr, t.timeout)
	return nil
}

func (t *clientTransport) Send(ctx context.Context, req []byte) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil, fmt.Errorf("connection is closed")
	}

	// Give up early if the caller is no longer waiting
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Encrypt: prefix || wire nonce || ciphertext
	seed, err := t.nonces.Seed()
	if err != nil {
		return nil, err
	}
	sealed, err := cipher.Seal(t.config.Key, seed, req)
	if err != nil {
		return nil, err
	}
	datagram := make([]byte, 0, PrefixSize+len(sealed))
	datagram = append(datagram, t.prefix[:]...)
	datagram = append(datagram, sealed...)

	if _, err := t.conn.Write(datagram); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	// Wait for the response until the timeout or the context deadline, whichever comes first
	deadline := time.Now().Add(t.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	// Cancelling the context unblocks the read
	unblocked := make(chan struct{})
	stop := context.AfterFunc(ctx, func() {
		_ = t.conn.SetReadDeadline(time.Unix(1, 0))
		close(unblocked)
	})
	n, err := t.conn.Read(t.buf)
	if !stop() {
		// the callback must not move the deadline of the next request
		<-unblocked
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return nil, common.NewErrorf(common.ErrCTimeout, "no response within %s", t.timeout)
		}
		return nil, fmt.Errorf("failed to receive response: %w", err)
	}

	Logger.Debugf("Received %d bytes for a %d byte request", n, len(req))

	// Decrypt: wire nonce || ciphertext
	return cipher.Open(t.config.Key, t.buf[:n])
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return nil
	}
	err := t.conn.Close()
	t.conn = nil
	return err
}
