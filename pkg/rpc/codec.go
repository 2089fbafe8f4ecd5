/*
Package rpc hand-rolls the agent's gRPC service description. No .proto file
or generated stubs exist for this service; encoding/gob stands in for
protobuf as the wire codec, registered on the server via
grpc.ForceServerCodec, and the ServiceDesc below is written by hand in the
same shape protoc-gen-go-grpc would have emitted.
*/
package rpc

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Codec implements grpc/encoding.Codec using encoding/gob. It is registered
// with grpc.ForceServerCodec so the server never attempts to negotiate a
// protobuf codec it has no generated messages for.
type Codec struct{}

// Name reports the codec's wire name, used in the content-subtype of every
// message this server sends or receives.
func (Codec) Name() string { return "gob" }

// Marshal gob-encodes v.
func (Codec) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, fmt.Errorf("gob marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// Unmarshal gob-decodes data into v.
func (Codec) Unmarshal(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return fmt.Errorf("gob unmarshal: %w", err)
	}
	return nil
}
