package rpc

import "fmt"

// codec implements google.golang.org/grpc/encoding.Codec against wireMessage
// instead of proto.Message, since the message types in this package encode
// themselves directly (see wire.go) rather than through generated
// reflection metadata.
type codec struct{}

func (codec) Name() string { return "kvwal-wire" }

func (codec) Marshal(v any) ([]byte, error) {
	m, ok := v.(wireMessage)
	if !ok {
		return nil, fmt.Errorf("rpc: %T does not implement wireMessage", v)
	}
	return m.marshalWire(), nil
}

func (codec) Unmarshal(data []byte, v any) error {
	m, ok := v.(wireMessage)
	if !ok {
		return fmt.Errorf("rpc: %T does not implement wireMessage", v)
	}
	return m.unmarshalWire(data)
}
