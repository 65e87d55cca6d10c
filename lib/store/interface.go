package store

import (
	"context"
	"github.com/ValentinKolb/dFS/rpc/common"
)

// --------------------------------------------------------------------------
// Interface Definition
// --------------------------------------------------------------------------

// IFileStore is the interface for interacting with one versioned file database.
// Every database has a version that is incremented by each successful Set. Files are
// addressed by uint32 keys and carry their own version (0 is never used for a stored file).
type IFileStore interface {
	// Get returns all files with a key in [key1, key2] together with the database version.
	Get(ctx context.Context, key1, key2 uint32) (resp common.GetResponse, err error)
	// GetLast returns the file with the greatest key in [key1, key2].
	// Last is nil if no key lies in the range.
	GetLast(ctx context.Context, key1, key2 uint32) (resp common.GetLastResponse, err error)
	// GetFileVersion returns the version of a single file. Found is false if the key does not exist.
	GetFileVersion(ctx context.Context, key uint32) (resp common.GetFileVersionResponse, err error)
	// Set applies the write set if dbVersion equals the current database version.
	// An empty value deletes the key. On a version conflict nothing is written.
	Set(ctx context.Context, dbVersion uint32, values []common.KeyValue) (err error)
}

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and an error message. The message is what remote callers see.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Msg
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new store error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCInternalError   RetCode = iota + 1 // 1: Command failed due to an internal error.
	RetCVersionMismatch                    // 2: The expected database version is not the current one.
)

// ErrVersionMismatch is returned by Set if the expected version is outdated
var ErrVersionMismatch = NewError(RetCVersionMismatch, "version mismatch")
