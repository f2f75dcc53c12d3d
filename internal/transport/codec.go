package transport

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// jsonCodecName is installed in place of grpc's default "proto" codec so the
// hand-built service in internal/transport/pb can carry schema-free payloads
// (Request.Args []any, Metadata map[string]any) without protobuf messages.
const jsonCodecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// Codec returns the JSON encoding.Codec installed in place of grpc's default
// protobuf codec, for ForceServerCodec/ForceCodec call sites.
func Codec() encoding.Codec { return jsonCodec{} }

type jsonCodec struct{}

func (jsonCodec) Name() string { return jsonCodecName }

func (jsonCodec) Marshal(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("json codec marshal: %w", err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("json codec unmarshal: %w", err)
	}
	return nil
}
