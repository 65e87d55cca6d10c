package serializer

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dFS/rpc/common"
	"github.com/dsnet/compress/bzip2"
	"io"
)

// maxPayloadSize limits the decompressed size of a write set
const maxPayloadSize = 256 * 1024 * 1024 // 256 MB

// encodeValues builds the uncompressed write set: count, then key, length and data per entry
func encodeValues(values []common.KeyValue) []byte {
	size := 4
	for _, kv := range values {
		size += kv.BinaryLength()
	}

	result := make([]byte, 0, size)
	result = binary.LittleEndian.AppendUint32(result, uint32(len(values)))
	for _, kv := range values {
		result = binary.LittleEndian.AppendUint32(result, kv.Key)
		result = binary.LittleEndian.AppendUint32(result, uint32(len(kv.Value)))
		result = append(result, kv.Value...)
	}
	return result
}

// decodeValues parses an uncompressed write set, the buffer must be consumed exactly
func decodeValues(data []byte) ([]common.KeyValue, error) {
	r := &reader{data: data}

	count := r.uint32("value count")
	// every entry needs at least key and length
	if r.err == nil && uint64(count)*8 > uint64(r.remaining()) {
		return nil, common.NewErrorf(common.ErrCFraming, "data is too short: %d values announced, %d bytes left", count, r.remaining())
	}

	values := make([]common.KeyValue, 0, count)
	for i := uint32(0); i < count && r.err == nil; i++ {
		key := r.uint32("key")
		length := r.uint32("value length")
		if r.err == nil && uint64(length) > uint64(r.remaining()) {
			return nil, common.NewErrorf(common.ErrCFraming, "data is too short for value of key %d", key)
		}
		values = append(values, common.KeyValue{Key: key, Value: r.bytes(int(length), "value")})
	}

	if err := r.finish(); err != nil {
		return nil, err
	}
	return values, nil
}

// compressValues encodes the write set and compresses it with bzip2 at the highest level
func compressValues(values []common.KeyValue) ([]byte, error) {
	var buf bytes.Buffer
	w, err := bzip2.NewWriter(&buf, &bzip2.WriterConfig{Level: bzip2.BestCompression})
	if err != nil {
		return nil, fmt.Errorf("failed to create compressor: %w", err)
	}
	if _, err := w.Write(encodeValues(values)); err != nil {
		return nil, fmt.Errorf("failed to compress values: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress values: %w", err)
	}
	return buf.Bytes(), nil
}

// decompressValues reverses compressValues
func decompressValues(data []byte) ([]common.KeyValue, error) {
	r, err := bzip2.NewReader(bytes.NewReader(data), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer r.Close()

	raw, err := io.ReadAll(io.LimitReader(r, maxPayloadSize+1))
	if err != nil {
		return nil, common.WrapError(common.ErrCFraming, "failed to decompress values", err)
	}
	if len(raw) > maxPayloadSize {
		return nil, common.NewErrorf(common.ErrCFraming, "decompressed payload exceeds %d bytes", maxPayloadSize)
	}

	return decodeValues(raw)
}
