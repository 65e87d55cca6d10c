package cipher

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"time"
)

// NonceDeriver creates the per-message seeds: 4 random bytes followed by the
// current unix time in seconds (int64, little endian). It is safe for concurrent use.
type NonceDeriver struct {
	mu     sync.Mutex
	random io.Reader
	now    func() time.Time
}

// NonceOption configures a NonceDeriver
type NonceOption func(*NonceDeriver)

// WithRandom replaces the random source (crypto/rand by default)
func WithRandom(r io.Reader) NonceOption {
	return func(d *NonceDeriver) {
		d.random = r
	}
}

// WithClock replaces the clock (time.Now by default)
func WithClock(now func() time.Time) NonceOption {
	return func(d *NonceDeriver) {
		d.now = now
	}
}

// NewNonceDeriver creates a NonceDeriver
func NewNonceDeriver(opts ...NonceOption) *NonceDeriver {
	d := &NonceDeriver{
		random: rand.Reader,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Seed returns a fresh 12 byte seed
func (d *NonceDeriver) Seed() ([]byte, error) {
	seed := make([]byte, NonceSize)
	d.mu.Lock()
	_, err := io.ReadFull(d.random, seed[:4])
	d.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	binary.LittleEndian.PutUint64(seed[4:], uint64(d.now().Unix()))
	return seed, nil
}
