package serializer

import (
	"github.com/ValentinKolb/dFS/rpc/common"
	"testing"
)

// benchmarkResponses returns a set of responses for targeted benchmarking
func benchmarkResponses() map[string]common.Message {
	manyFiles := make([]common.KeyFile, 100)
	for i := range manyFiles {
		manyFiles[i] = common.KeyFile{Key: uint32(i), File: common.File{Version: 1, Data: make([]byte, 128)}}
	}

	return map[string]common.Message{
		"SetAck":      *common.NewSetResponse(),
		"FileVersion": *common.NewGetFileVersionResponse(10, 3),
		"GetLast": *common.NewGetLastResponse(10, &common.KeyFile{
			Key: 1, File: common.File{Version: 1, Data: make([]byte, 1024)},
		}),
		"GetManyFiles": *common.NewGetResponse(10, manyFiles),
		"Error":        *common.NewErrorResponse(common.OpSet, "version mismatch"),
	}
}

// BenchmarkDeserializeResponse benchmarks response decoding
func BenchmarkDeserializeResponse(b *testing.B) {
	serializer := NewBinarySerializer()

	for name, msg := range benchmarkResponses() {
		data, err := serializer.SerializeResponse(msg)
		if err != nil {
			b.Fatalf("Failed to serialize %s: %v", name, err)
		}

		b.Run(name, func(b *testing.B) {
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				var result common.Message
				if err := serializer.DeserializeResponse(msg.Op, data, &result); err != nil {
					b.Fatalf("Failed to deserialize: %v", err)
				}
			}
		})
	}
}

// BenchmarkSerializeSet benchmarks the set request encoding, which includes the compression
func BenchmarkSerializeSet(b *testing.B) {
	serializer := NewBinarySerializer()

	sizes := map[string]int{
		"Small": 16,
		"1KB":   1024,
		"64KB":  64 * 1024,
	}

	for name, size := range sizes {
		values := []common.KeyValue{{Key: 1, Value: make([]byte, size)}}
		msg := *common.NewSetRequest("db", 1, values)

		b.Run(name, func(b *testing.B) {
			data, err := serializer.SerializeRequest(msg)
			if err != nil {
				b.Fatalf("Failed to serialize: %v", err)
			}
			// Report the size as a custom metric
			b.ReportMetric(float64(len(data)), "bytes")

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := serializer.SerializeRequest(msg); err != nil {
					b.Fatalf("Failed to serialize: %v", err)
				}
			}
		})
	}
}
