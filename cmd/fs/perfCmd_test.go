package fs

import (
	"context"
	"github.com/ValentinKolb/dFS/rpc/client"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/ValentinKolb/dFS/rpc/serializer"
	"sync"
	"testing"
	"time"
)

// slowTransport answers every file version request after a fixed delay.
// Like the UDP transport it handles one request at a time.
type slowTransport struct {
	mu    sync.Mutex
	delay time.Duration
}

func (s *slowTransport) Connect(common.ClientConfig) error { return nil }

func (s *slowTransport) Send(_ context.Context, _ []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	time.Sleep(s.delay)
	return []byte{0, 1, 0, 0, 0, 1, 0, 0, 0}, nil
}

func (s *slowTransport) Close() error { return nil }

// TestMeasureUsesOwnClientPerThread tests that the latency of a thread does not include waiting for the others
func TestMeasureUsesOwnClientPerThread(t *testing.T) {
	old := perfRequests
	perfRequests = 40
	t.Cleanup(func() { perfRequests = old })

	delay := 20 * time.Millisecond
	clients := make([]*client.RPCFileStore, 4)
	for i := range clients {
		c, err := client.NewRPCFileStore(common.ClientConfig{DBName: "db"}, &slowTransport{delay: delay}, serializer.NewBinarySerializer())
		if err != nil {
			t.Fatalf("Failed to create client: %v", err)
		}
		clients[i] = c
	}

	result := measure("get-version", clients, func(c *client.RPCFileStore, i int) error {
		_, err := c.GetFileVersion(context.Background(), uint32(i))
		return err
	})

	snapshot := result.timer.Snapshot()
	if snapshot.Count() != 40 || result.errors != 0 {
		t.Fatalf("Expected 40 successful requests, got %d (%d errors)", snapshot.Count(), result.errors)
	}
	// A shared client would queue the threads and report about 4x the delay
	if mean := time.Duration(snapshot.Mean()); mean > 2*delay {
		t.Errorf("Mean latency %s is far above the round trip time %s", mean, delay)
	}
	// 10 requests per client in parallel
	if result.took > 25*delay {
		t.Errorf("Test took %s, the clients did not run in parallel", result.took)
	}
}

// TestSetRequiresFiles tests that set needs the version and at least one file
func TestSetRequiresFiles(t *testing.T) {
	if err := setCmd.Args(setCmd, []string{"1"}); err == nil {
		t.Errorf("Expected error for set without files")
	}
	if err := setCmd.Args(setCmd, []string{"1", "./in/42"}); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
