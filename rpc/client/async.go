package client

import (
	"context"
	"github.com/ValentinKolb/dFS/rpc/common"
)

// Future is the pending result of an asynchronous call
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// runAsync runs fn in a new goroutine and returns its future
func runAsync[T any](fn func() (T, error)) *Future[T] {
	f := &Future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		f.value, f.err = fn()
	}()
	return f
}

// Done returns a channel that is closed once the result is available
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the result is available or ctx is done.
// If ctx is done first, the call keeps running and the result can still be awaited later.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// --------------------------------------------------------------------------
// Asynchronous Variants
// --------------------------------------------------------------------------

// GetAsync runs Get in the background
func (c *RPCFileStore) GetAsync(ctx context.Context, key1, key2 uint32) *Future[common.GetResponse] {
	return runAsync(func() (common.GetResponse, error) {
		return c.Get(ctx, key1, key2)
	})
}

// GetLastAsync runs GetLast in the background
func (c *RPCFileStore) GetLastAsync(ctx context.Context, key1, key2 uint32) *Future[common.GetLastResponse] {
	return runAsync(func() (common.GetLastResponse, error) {
		return c.GetLast(ctx, key1, key2)
	})
}

// GetFileVersionAsync runs GetFileVersion in the background
func (c *RPCFileStore) GetFileVersionAsync(ctx context.Context, key uint32) *Future[common.GetFileVersionResponse] {
	return runAsync(func() (common.GetFileVersionResponse, error) {
		return c.GetFileVersion(ctx, key)
	})
}

// SetAsync runs Set in the background. The future holds no value.
func (c *RPCFileStore) SetAsync(ctx context.Context, dbVersion uint32, values []common.KeyValue) *Future[struct{}] {
	return runAsync(func() (struct{}, error) {
		return struct{}{}, c.Set(ctx, dbVersion, values)
	})
}
