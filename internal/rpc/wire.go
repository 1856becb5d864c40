// Package rpc is the gRPC adapter over the cache+WAL binding, corresponding
// to api/proto/v1/kv.proto. The message types below encode themselves
// directly against the protobuf wire format using
// google.golang.org/protobuf/encoding/protowire, in place of
// protoc-gen-go/protoc-gen-go-grpc output, so building the repository never
// requires a protoc toolchain; the field numbers here match the .proto
// exactly, so a later regeneration pass is wire-compatible.
package rpc

import "google.golang.org/protobuf/encoding/protowire"

type wireMessage interface {
	marshalWire() []byte
	unmarshalWire([]byte) error
}

type GetKeyRequest struct{ Key string }

func (m *GetKeyRequest) marshalWire() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Key)
	return b
}

func (m *GetKeyRequest) unmarshalWire(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Key = string(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

type GetKeyResponse struct{ Value string }

func (m *GetKeyResponse) marshalWire() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Value)
	return b
}

func (m *GetKeyResponse) unmarshalWire(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Value = string(v)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

type SetKeyRequest struct {
	Key   string
	Value string
}

func (m *SetKeyRequest) marshalWire() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Key)
	b = protowire.AppendTag(b, 2, protowire.BytesType)
	b = protowire.AppendString(b, m.Value)
	return b
}

func (m *SetKeyRequest) unmarshalWire(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == 1 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Key = string(v)
			b = b[n:]
		case num == 2 && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Value = string(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	return nil
}

type SetKeyResponse struct{}

func (m *SetKeyResponse) marshalWire() []byte          { return nil }
func (m *SetKeyResponse) unmarshalWire(b []byte) error { return nil }

type DeleteKeyRequest struct{ Key string }

func (m *DeleteKeyRequest) marshalWire() []byte {
	var b []byte
	b = protowire.AppendTag(b, 1, protowire.BytesType)
	b = protowire.AppendString(b, m.Key)
	return b
}

func (m *DeleteKeyRequest) unmarshalWire(b []byte) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if num == 1 && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			m.Key = string(v)
			b = b[n:]
			continue
		}
		n = protowire.ConsumeFieldValue(num, typ, b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
	}
	return nil
}

type DeleteKeyResponse struct{}

func (m *DeleteKeyResponse) marshalWire() []byte          { return nil }
func (m *DeleteKeyResponse) unmarshalWire(b []byte) error { return nil }
