package admin

import (
	"fmt"
	"time"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
)

// codecName matches grpc's default codec so stock protobuf clients can call
// the admin services.
const codecName = "proto"

// wireMessage is implemented by the admin messages, which encode themselves
// with protowire instead of generated code.
type wireMessage interface {
	appendWire(b []byte) []byte
	consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error)
}

// codec speaks the protobuf wire format. It is installed per server and per
// client, never registered globally.
type codec struct{}

func (codec) Name() string { return codecName }

func (codec) Marshal(v any) ([]byte, error) {
	switch m := v.(type) {
	case wireMessage:
		return m.appendWire(nil), nil
	case proto.Message:
		return proto.Marshal(m)
	}
	return nil, fmt.Errorf("%w: can't marshal %T", ErrCodec, v)
}

func (codec) Unmarshal(data []byte, v any) error {
	switch m := v.(type) {
	case wireMessage:
		return unmarshalWire(data, m)
	case proto.Message:
		return proto.Unmarshal(data, m)
	}
	return fmt.Errorf("%w: can't unmarshal into %T", ErrCodec, v)
}

func unmarshalWire(b []byte, m wireMessage) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return parseError(n)
		}
		b = b[n:]

		n, err := m.consumeField(num, typ, b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

func parseError(n int) error {
	return fmt.Errorf("%w: %w", ErrCodec, protowire.ParseError(n))
}

// Zero values are omitted, as proto3 does.

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendInt64(b []byte, num protowire.Number, v int64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, uint64(v))
}

func appendMessage(b []byte, num protowire.Number, m wireMessage) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, m.appendWire(nil))
}

func consumeString(b []byte, dst *string) (int, error) {
	v, n := protowire.ConsumeString(b)
	if n < 0 {
		return 0, parseError(n)
	}
	if !utf8.ValidString(v) {
		return 0, fmt.Errorf("%w: string field is not valid UTF-8", ErrCodec)
	}
	*dst = v
	return n, nil
}

func consumeInt64(b []byte, dst *int64) (int, error) {
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, parseError(n)
	}
	*dst = int64(v)
	return n, nil
}

func consumeMessage(b []byte, m wireMessage) (int, error) {
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, parseError(n)
	}
	return n, unmarshalWire(v, m)
}

// skipField drops fields this side does not know.
func skipField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	n := protowire.ConsumeFieldValue(num, typ, b)
	if n < 0 {
		return 0, parseError(n)
	}
	return n, nil
}

// timestamp is google.protobuf.Timestamp.
type timestamp struct {
	seconds int64
	nanos   int64
}

func (t *timestamp) appendWire(b []byte) []byte {
	b = appendInt64(b, 1, t.seconds)
	return appendInt64(b, 2, t.nanos)
}

func (t *timestamp) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch {
	case num == 1 && typ == protowire.VarintType:
		return consumeInt64(b, &t.seconds)
	case num == 2 && typ == protowire.VarintType:
		return consumeInt64(b, &t.nanos)
	}
	return skipField(num, typ, b)
}

func (t *timestamp) time() time.Time {
	return time.Unix(t.seconds, t.nanos).UTC()
}
