package common

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Domain Types
// --------------------------------------------------------------------------

// KeyValue is a single entry of a write set. An empty Value deletes the key.
type KeyValue struct {
	Key   uint32
	Value []byte
}

// BinaryLength returns the number of bytes the entry occupies in the write set payload
func (kv KeyValue) BinaryLength() int {
	return 8 + len(kv.Value)
}

// File is the unit returned by read operations.
// Version 0 is reserved and means "absent" for single-file queries.
type File struct {
	Version uint32
	Data    []byte
}

// KeyFile is a File together with the key it is stored under
type KeyFile struct {
	Key uint32
	File
}

// GetResponse is the result of a range get
type GetResponse struct {
	DBVersion uint32
	Data      map[uint32]File
}

// GetLastResponse is the result of a get-last query. Last is nil if the range was empty.
type GetLastResponse struct {
	DBVersion uint32
	Last      *KeyFile
}

// GetFileVersionResponse is the result of a file version query
type GetFileVersionResponse struct {
	DBVersion   uint32
	FileVersion uint32
	Found       bool
}

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the opcode and on whether it is a request or a response.
type Message struct {
	// Operation of the message
	Op OpCode

	// Request fields
	DBName string     // Used for: all requests
	Key1   uint32     // Used for: Get, GetLast (range start), GetFileVersion (the key)
	Key2   uint32     // Used for: Get, GetLast (range end, inclusive)
	Values []KeyValue // Used for: Set (request)

	// Used for: Set (request, expected version) and all success responses (current version)
	DBVersion uint32

	// Response only fields
	Status      Status
	Files       []KeyFile // Used for: Get, GetLast (at most one entry)
	FileVersion uint32    // Used for: GetFileVersion, 0 if absent
	Err         string    // Used for: error responses
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewGetRequest creates a new Get request for all keys in [key1, key2]
func NewGetRequest(dbName string, key1, key2 uint32) *Message {
	return &Message{
		Op:     OpGet,
		DBName: dbName,
		Key1:   key1,
		Key2:   key2,
	}
}

// NewGetResponse creates a new Get response
func NewGetResponse(dbVersion uint32, files []KeyFile) *Message {
	return &Message{
		Op:        OpGet,
		Status:    StatusOk,
		DBVersion: dbVersion,
		Files:     files,
	}
}

// NewGetLastRequest creates a new GetLast request for the greatest key in [key1, key2]
func NewGetLastRequest(dbName string, key1, key2 uint32) *Message {
	return &Message{
		Op:     OpGetLast,
		DBName: dbName,
		Key1:   key1,
		Key2:   key2,
	}
}

// NewGetLastResponse creates a new GetLast response. last may be nil.
func NewGetLastResponse(dbVersion uint32, last *KeyFile) *Message {
	msg := &Message{
		Op:        OpGetLast,
		Status:    StatusOk,
		DBVersion: dbVersion,
	}
	if last != nil {
		msg.Files = []KeyFile{*last}
	}
	return msg
}

// NewGetFileVersionRequest creates a new GetFileVersion request
func NewGetFileVersionRequest(dbName string, key uint32) *Message {
	return &Message{
		Op:     OpGetFileVersion,
		DBName: dbName,
		Key1:   key,
	}
}

// NewGetFileVersionResponse creates a new GetFileVersion response (fileVersion 0 means absent)
func NewGetFileVersionResponse(dbVersion, fileVersion uint32) *Message {
	return &Message{
		Op:          OpGetFileVersion,
		Status:      StatusOk,
		DBVersion:   dbVersion,
		FileVersion: fileVersion,
	}
}

// NewSetRequest creates a new Set request
func NewSetRequest(dbName string, dbVersion uint32, values []KeyValue) *Message {
	return &Message{
		Op:        OpSet,
		DBName:    dbName,
		DBVersion: dbVersion,
		Values:    values,
	}
}

// NewSetResponse creates a new Set response
func NewSetResponse() *Message {
	return &Message{
		Op:     OpSet,
		Status: StatusOk,
	}
}

// NewErrorResponse creates a new Error response for the given operation
func NewErrorResponse(op OpCode, err string) *Message {
	return &Message{
		Op:     op,
		Status: StatusError,
		Err:    err,
	}
}

// --------------------------------------------------------------------------
// OpCode Definition
// --------------------------------------------------------------------------

// OpCode is the single byte selecting the operation of a request
type OpCode uint8

const (
	OpGet            OpCode = iota // Get all files in a key range
	OpSet                          // Write a set of files (versioned)
	OpGetLast                      // Get the file with the greatest key in a range
	OpGetFileVersion               // Get the version of a single file
)

// String returns the string representation of an OpCode.
func (o OpCode) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpSet:
		return "set"
	case OpGetLast:
		return "getLast"
	case OpGetFileVersion:
		return "getFileVersion"
	default:
		return "unknown"
	}
}

// Valid reports whether the opcode is one of the four known operations
func (o OpCode) Valid() bool {
	return o <= OpGetFileVersion
}

// --------------------------------------------------------------------------
// Status Tag Definition
// --------------------------------------------------------------------------

// Status is the first decrypted byte of every response
type Status uint8

const (
	StatusOk    Status = 0 // payload follows
	StatusError Status = 2 // UTF-8 error message follows
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("unrecognized(%d)", uint8(s))
	}
}
