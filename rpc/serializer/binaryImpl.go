package serializer

import (
	"encoding/binary"
	"github.com/ValentinKolb/dFS/rpc/common"
)

// NewBinarySerializer creates a new serializer for the little endian wire format
// of the file store
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer for the file store wire format
type binarySerializerImpl struct {
}

// MaxDBNameLength is the maximum length of a database name in bytes
const MaxDBNameLength = 255

// size of the fixed part of an encoded file: fileVersion + key + length
const fileHeaderSize = 12

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) SerializeRequest(msg common.Message) ([]byte, error) {
	if !msg.Op.Valid() {
		return nil, common.NewErrorf(common.ErrCInvalidRequest, "unknown opcode %d", msg.Op)
	}
	if len(msg.DBName) > MaxDBNameLength {
		return nil, common.NewErrorf(common.ErrCInvalidRequest, "database name too long (%d bytes, max %d)", len(msg.DBName), MaxDBNameLength)
	}

	// Build the trailing fields first, the set payload must be compressed to know the size
	var trailing []byte
	switch msg.Op {
	case common.OpGet, common.OpGetLast:
		trailing = make([]byte, 8)
		binary.LittleEndian.PutUint32(trailing[0:4], msg.Key1)
		binary.LittleEndian.PutUint32(trailing[4:8], msg.Key2)
	case common.OpGetFileVersion:
		trailing = make([]byte, 4)
		binary.LittleEndian.PutUint32(trailing, msg.Key1)
	case common.OpSet:
		compressed, err := compressValues(msg.Values)
		if err != nil {
			return nil, err
		}
		trailing = make([]byte, 4, 4+len(compressed))
		binary.LittleEndian.PutUint32(trailing, msg.DBVersion)
		trailing = append(trailing, compressed...)
	}

	// Header: opcode, database name length, database name
	result := make([]byte, 0, 2+len(msg.DBName)+len(trailing))
	result = append(result, byte(msg.Op), byte(len(msg.DBName)))
	result = append(result, msg.DBName...)
	result = append(result, trailing...)

	return result, nil
}

func (b binarySerializerImpl) DeserializeRequest(data []byte, msg *common.Message) error {
	r := &reader{data: data}

	// Read opcode
	msg.Op = common.OpCode(r.byte("opcode"))
	if r.err == nil && !msg.Op.Valid() {
		return common.NewErrorf(common.ErrCInvalidRequest, "invalid command %d", msg.Op)
	}

	// Read database name
	nameLen := r.byte("database name length")
	msg.DBName = string(r.bytes(int(nameLen), "database name"))

	// Reset all optional fields
	msg.Key1, msg.Key2, msg.DBVersion, msg.Values = 0, 0, 0, nil

	switch msg.Op {
	case common.OpGet, common.OpGetLast:
		msg.Key1 = r.uint32("key1")
		msg.Key2 = r.uint32("key2")
	case common.OpGetFileVersion:
		msg.Key1 = r.uint32("key")
	case common.OpSet:
		msg.DBVersion = r.uint32("database version")
		if r.err != nil {
			return r.err
		}
		values, err := decompressValues(r.rest())
		if err != nil {
			return err
		}
		msg.Values = values
	}

	return r.finish()
}

func (b binarySerializerImpl) SerializeResponse(msg common.Message) ([]byte, error) {
	// Error responses: status byte followed by the message
	if msg.Status != common.StatusOk {
		result := make([]byte, 1, 1+len(msg.Err))
		result[0] = byte(msg.Status)
		return append(result, msg.Err...), nil
	}

	// Calculate total size needed
	size := 1
	switch msg.Op {
	case common.OpGet:
		size += 8
		for _, f := range msg.Files {
			size += fileHeaderSize + len(f.Data)
		}
	case common.OpGetLast:
		size += 5
		if len(msg.Files) > 0 {
			size += fileHeaderSize + len(msg.Files[0].Data)
		}
	case common.OpGetFileVersion:
		size += 8
	case common.OpSet:
	default:
		return nil, common.NewErrorf(common.ErrCInvalidRequest, "unknown opcode %d", msg.Op)
	}

	result := make([]byte, 1, size)
	result[0] = byte(common.StatusOk)

	switch msg.Op {
	case common.OpGet:
		result = binary.LittleEndian.AppendUint32(result, msg.DBVersion)
		result = binary.LittleEndian.AppendUint32(result, uint32(len(msg.Files)))
		for _, f := range msg.Files {
			result = appendFile(result, f)
		}
	case common.OpGetLast:
		result = binary.LittleEndian.AppendUint32(result, msg.DBVersion)
		if len(msg.Files) > 0 {
			result = append(result, 1)
			result = appendFile(result, msg.Files[0])
		} else {
			result = append(result, 0)
		}
	case common.OpGetFileVersion:
		result = binary.LittleEndian.AppendUint32(result, msg.DBVersion)
		result = binary.LittleEndian.AppendUint32(result, msg.FileVersion)
	}

	return result, nil
}

func (b binarySerializerImpl) DeserializeResponse(op common.OpCode, data []byte, msg *common.Message) error {
	// Check minimum size (status)
	if len(data) < 1 {
		return common.NewError(common.ErrCFraming, "empty response")
	}

	*msg = common.Message{Op: op, Status: common.Status(data[0])}

	// Error response: the rest is the message
	if msg.Status == common.StatusError {
		msg.Err = string(data[1:])
		return nil
	}

	// Unknown status: nothing else can be interpreted
	if msg.Status != common.StatusOk {
		return nil
	}

	r := &reader{data: data, pos: 1}

	switch op {
	case common.OpGet:
		msg.DBVersion = r.uint32("database version")
		count := r.uint32("file count")
		// every file needs at least its header, reject absurd counts before allocating
		if r.err == nil && uint64(count)*fileHeaderSize > uint64(r.remaining()) {
			return common.NewErrorf(common.ErrCFraming, "incorrect response length: %d files announced, %d bytes left", count, r.remaining())
		}
		msg.Files = make([]common.KeyFile, 0, count)
		for i := uint32(0); i < count && r.err == nil; i++ {
			msg.Files = append(msg.Files, r.file())
		}
	case common.OpGetLast:
		msg.DBVersion = r.uint32("database version")
		if present := r.byte("present flag"); present != 0 {
			msg.Files = []common.KeyFile{r.file()}
		}
	case common.OpGetFileVersion:
		if len(data)-1 != 8 {
			return common.NewErrorf(common.ErrCFraming, "incorrect response length: %d bytes, expected 8", len(data)-1)
		}
		msg.DBVersion = r.uint32("database version")
		msg.FileVersion = r.uint32("file version")
	case common.OpSet:
	default:
		return common.NewErrorf(common.ErrCInvalidRequest, "unknown opcode %d", op)
	}

	return r.finish()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// appendFile appends fileVersion, key, length and data
func appendFile(dst []byte, f common.KeyFile) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, f.Version)
	dst = binary.LittleEndian.AppendUint32(dst, f.Key)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(f.Data)))
	return append(dst, f.Data...)
}

// reader reads little endian fields from a buffer. The first failure is kept
// in err and turns all further reads into no-ops.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

// need checks that n more bytes are available
func (r *reader) need(n int, field string) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.remaining() < n {
		r.err = common.NewErrorf(common.ErrCFraming, "data too short for %s", field)
		return false
	}
	return true
}

func (r *reader) byte(field string) byte {
	if !r.need(1, field) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) uint32(field string) uint32 {
	if !r.need(4, field) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos : r.pos+4])
	r.pos += 4
	return v
}

// bytes returns a copy of the next n bytes
func (r *reader) bytes(n int, field string) []byte {
	if !r.need(n, field) {
		return nil
	}
	v := make([]byte, n)
	copy(v, r.data[r.pos:r.pos+n])
	r.pos += n
	return v
}

// rest consumes everything that is left
func (r *reader) rest() []byte {
	v := r.data[r.pos:]
	r.pos = len(r.data)
	return v
}

// file reads fileVersion, key, length and data
func (r *reader) file() common.KeyFile {
	version := r.uint32("file version")
	key := r.uint32("file key")
	length := r.uint32("file length")
	if r.err == nil && uint64(length) > uint64(r.remaining()) {
		r.err = common.NewErrorf(common.ErrCFraming, "data too short for file %d (%d bytes)", key, length)
	}
	data := r.bytes(int(length), "file data")
	return common.KeyFile{Key: key, File: common.File{Version: version, Data: data}}
}

// finish returns the first read error or a framing error if bytes are left over
func (r *reader) finish() error {
	if r.err != nil {
		return r.err
	}
	if r.remaining() != 0 {
		return common.NewErrorf(common.ErrCFraming, "incorrect length: %d unread bytes", r.remaining())
	}
	return nil
}
