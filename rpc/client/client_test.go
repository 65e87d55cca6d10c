package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"github.com/ValentinKolb/dFS/rpc/transport/udp"
	"net"
	"reflect"
	"testing"
	"time"
)

// fakeTransport answers every request with a fixed plaintext response
type fakeTransport struct {
	resp    []byte
	err     error
	lastReq []byte
}

func (f *fakeTransport) Connect(common.ClientConfig) error { return nil }

func (f *fakeTransport) Send(_ context.Context, req []byte) ([]byte, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeTransport) Close() error { return nil }

// newFakeClient creates a client for database "db" on a fake transport
func newFakeClient(t *testing.T, resp []byte) (*RPCFileStore, *fakeTransport) {
	t.Helper()
	ft := &fakeTransport{resp: resp}
	c, err := NewRPCFileStore(common.ClientConfig{DBName: "db"}, ft, serializer.NewBinarySerializer())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c, ft
}

// TestGetScenario tests a range get against a hand-built response
func TestGetScenario(t *testing.T) {
	c, ft := newFakeClient(t, []byte{
		0,          // status
		3, 0, 0, 0, // db version
		1, 0, 0, 0, // count
		2, 0, 0, 0, // file version
		3, 0, 0, 0, // key
		2, 0, 0, 0, // length
		0xAA, 0xBB,
	})

	resp, err := c.Get(context.Background(), 1, 5)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	expectedReq := []byte{0, 2, 'd', 'b', 1, 0, 0, 0, 5, 0, 0, 0}
	if !bytes.Equal(ft.lastReq, expectedReq) {
		t.Errorf("Unexpected request:\nExpected: %v\nGot: %v", expectedReq, ft.lastReq)
	}

	expected := common.GetResponse{
		DBVersion: 3,
		Data:      map[uint32]common.File{3: {Version: 2, Data: []byte{0xAA, 0xBB}}},
	}
	if !reflect.DeepEqual(resp, expected) {
		t.Errorf("Unexpected result:\nExpected: %+v\nGot: %+v", expected, resp)
	}

	if c.Metrics().Requests(common.OpGet) != 1 {
		t.Errorf("Expected one recorded get request")
	}
}

// TestSetVersionMismatch tests that an error status becomes a protocol error
func TestSetVersionMismatch(t *testing.T) {
	c, _ := newFakeClient(t, append([]byte{2}, "version mismatch"...))

	err := c.Set(context.Background(), 1, []common.KeyValue{{Key: 1, Value: []byte("x")}})
	if !errors.Is(err, common.ErrProtocol) {
		t.Fatalf("Expected protocol error, got %v", err)
	}

	var e *common.Error
	if !errors.As(err, &e) || e.Msg != "version mismatch" {
		t.Errorf("Unexpected error details: %+v", e)
	}
	if err.Error() != "Error: version mismatch" {
		t.Errorf("Unexpected error text %q", err.Error())
	}
	if c.Metrics().Errors(common.OpSet, "protocol") != 1 {
		t.Errorf("Expected one recorded protocol error")
	}
}

// TestResponses tests the decoding of the other operations and the error paths
func TestResponses(t *testing.T) {
	ctx := context.Background()

	t.Run("FileVersionAbsent", func(t *testing.T) {
		c, ft := newFakeClient(t, []byte{0, 4, 0, 0, 0, 0, 0, 0, 0})
		resp, err := c.GetFileVersion(ctx, 9)
		if err != nil {
			t.Fatalf("GetFileVersion failed: %v", err)
		}
		if resp.Found || resp.DBVersion != 4 {
			t.Errorf("Unexpected result %+v", resp)
		}
		if !bytes.Equal(ft.lastReq, []byte{3, 2, 'd', 'b', 9, 0, 0, 0}) {
			t.Errorf("Unexpected request %v", ft.lastReq)
		}
	})

	t.Run("FileVersionFound", func(t *testing.T) {
		c, _ := newFakeClient(t, []byte{0, 4, 0, 0, 0, 2, 0, 0, 0})
		resp, err := c.GetFileVersion(ctx, 9)
		if err != nil || !resp.Found || resp.FileVersion != 2 {
			t.Errorf("Unexpected result %+v, %v", resp, err)
		}
	})

	t.Run("GetLast", func(t *testing.T) {
		c, _ := newFakeClient(t, []byte{0, 5, 0, 0, 0, 1, 1, 0, 0, 0, 8, 0, 0, 0, 1, 0, 0, 0, 'z'})
		resp, err := c.GetLast(ctx, 0, 10)
		if err != nil {
			t.Fatalf("GetLast failed: %v", err)
		}
		expected := &common.KeyFile{Key: 8, File: common.File{Version: 1, Data: []byte("z")}}
		if resp.DBVersion != 5 || !reflect.DeepEqual(resp.Last, expected) {
			t.Errorf("Unexpected result %+v", resp)
		}
	})

	t.Run("GetLastEmpty", func(t *testing.T) {
		c, _ := newFakeClient(t, []byte{0, 5, 0, 0, 0, 0})
		resp, err := c.GetLast(ctx, 0, 10)
		if err != nil || resp.Last != nil {
			t.Errorf("Unexpected result %+v, %v", resp, err)
		}
	})

	t.Run("UnrecognizedStatus", func(t *testing.T) {
		c, _ := newFakeClient(t, []byte{1})
		_, err := c.Get(ctx, 0, 1)
		var e *common.Error
		if !errors.Is(err, common.ErrUnrecognizedStatus) || !errors.As(err, &e) || e.Status != 1 {
			t.Errorf("Expected unrecognized status 1, got %v", err)
		}
	})

	t.Run("Framing", func(t *testing.T) {
		c, _ := newFakeClient(t, []byte{0, 1, 0, 0})
		if _, err := c.Get(ctx, 0, 1); !errors.Is(err, common.ErrFraming) {
			t.Errorf("Expected framing error, got %v", err)
		}
	})

	t.Run("TransportError", func(t *testing.T) {
		c, ft := newFakeClient(t, nil)
		ft.err = common.NewError(common.ErrCTimeout, "no response")
		if err := c.Set(ctx, 1, nil); !errors.Is(err, common.ErrTimeout) {
			t.Errorf("Expected timeout, got %v", err)
		}
	})
}

// TestTimeout tests the timeout against a server that never answers
func TestTimeout(t *testing.T) {
	silent, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer silent.Close()

	c, err := NewRPCFileStore(common.ClientConfig{
		Endpoint:           silent.LocalAddr().String(),
		UserID:             1,
		Key:                make([]byte, 32),
		DBName:             "db",
		TimeoutMillisecond: 50,
	}, udp.NewUDPClientTransport(), serializer.NewBinarySerializer())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	start := time.Now()
	if _, err := c.GetFileVersion(context.Background(), 1); !errors.Is(err, common.ErrTimeout) {
		t.Fatalf("Expected timeout error, got %v", err)
	}
	if time.Since(start) < 40*time.Millisecond {
		t.Errorf("Timeout fired too early")
	}
	if c.Metrics().Errors(common.OpGetFileVersion, "timeout") != 1 {
		t.Errorf("Expected one recorded timeout")
	}
}

// TestAsync tests the future wrapper
func TestAsync(t *testing.T) {
	c, _ := newFakeClient(t, []byte{0, 4, 0, 0, 0, 2, 0, 0, 0})

	future := c.GetFileVersionAsync(context.Background(), 1)
	<-future.Done()
	resp, err := future.Await(context.Background())
	if err != nil || resp.FileVersion != 2 {
		t.Errorf("Unexpected result %+v, %v", resp, err)
	}

	setFuture := c.SetAsync(context.Background(), 1, nil)
	if _, err := setFuture.Await(context.Background()); !errors.Is(err, common.ErrFraming) {
		t.Errorf("Expected framing error for a set answered with a version response, got %v", err)
	}

	// A cancelled await does not wait for the result
	blocked := &Future[int]{done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := blocked.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

// startVersionServer starts a loopback server that answers every file version
// request for key k with file version k after a delay depending on k
func startVersionServer(t *testing.T, key []byte) net.Addr {
	t.Helper()
	ser := serializer.NewBinarySerializer()

	server := udp.NewUDPServerTransport(8)
	server.RegisterHandler(
		func(prefix []byte) ([]byte, error) { return key, nil },
		func(prefix []byte, req []byte) []byte {
			var msg common.Message
			if err := ser.DeserializeRequest(req, &msg); err != nil {
				resp, _ := ser.SerializeResponse(*common.NewErrorResponse(msg.Op, err.Error()))
				return resp
			}
			time.Sleep(time.Duration(msg.Key1%7) * time.Millisecond)
			resp, _ := ser.SerializeResponse(*common.NewGetFileVersionResponse(1, msg.Key1))
			return resp
		},
	)

	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- server.Serve(conn) }()
	t.Cleanup(func() {
		_ = server.Close()
		<-done
	})

	for server.Addr() == nil {
		time.Sleep(time.Millisecond)
	}
	return server.Addr()
}

// TestConcurrentAsync tests that concurrent calls on one client each get their own response
func TestConcurrentAsync(t *testing.T) {
	key := make([]byte, 32)
	addr := startVersionServer(t, key)

	c, err := NewRPCFileStore(common.ClientConfig{
		Endpoint:           addr.String(),
		UserID:             1,
		Key:                key,
		DBName:             "db",
		TimeoutMillisecond: 2000,
	}, udp.NewUDPClientTransport(), serializer.NewBinarySerializer())
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	const calls = 50
	futures := make([]*Future[common.GetFileVersionResponse], calls)
	for i := range futures {
		futures[i] = c.GetFileVersionAsync(context.Background(), uint32(i+1))
	}

	for i, future := range futures {
		t.Run(fmt.Sprintf("Key%d", i+1), func(t *testing.T) {
			resp, err := future.Await(context.Background())
			if err != nil {
				t.Fatalf("Call failed: %v", err)
			}
			if resp.FileVersion != uint32(i+1) || !resp.Found {
				t.Errorf("Expected file version %d, got %+v", i+1, resp)
			}
		})
	}

	if c.Metrics().Requests(common.OpGetFileVersion) != calls {
		t.Errorf("Expected %d recorded requests", calls)
	}
}
