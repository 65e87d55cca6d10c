package serializer

import "github.com/ValentinKolb/dFS/rpc/common"

// IRPCSerializer is the interface for all Message Serializers.
// The client encodes requests and decodes responses, the server does the opposite.
type IRPCSerializer interface {
	// SerializeRequest serializes a request Message into a byte array
	// It returns the serialized byte array and an error if any
	SerializeRequest(msg common.Message) ([]byte, error)
	// DeserializeRequest deserializes a byte array into a request Message
	// It returns an error if the data is malformed or not consumed exactly
	DeserializeRequest(b []byte, msg *common.Message) error
	// SerializeResponse serializes a response Message (status byte followed by the body)
	SerializeResponse(msg common.Message) ([]byte, error)
	// DeserializeResponse deserializes a byte array into a response Message of the given operation
	// Error responses are not an error here: the status and message are stored in msg
	DeserializeResponse(op common.OpCode, b []byte, msg *common.Message) error
}
