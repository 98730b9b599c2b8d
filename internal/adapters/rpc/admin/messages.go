package admin

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

// SetRequest overwrites the score of one term.
//
//	message SetRequest { string term = 1; int64 value = 2; }
type SetRequest struct {
	Term  string
	Value int64
}

func (m *SetRequest) appendWire(b []byte) []byte {
	b = appendString(b, 1, m.Term)
	return appendInt64(b, 2, m.Value)
}

func (m *SetRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch {
	case num == 1 && typ == protowire.BytesType:
		return consumeString(b, &m.Term)
	case num == 2 && typ == protowire.VarintType:
		return consumeInt64(b, &m.Value)
	}
	return skipField(num, typ, b)
}

// SetResponse carries the score the term had before the call.
//
//	message SetResponse { int64 old_value = 1; }
type SetResponse struct {
	OldValue int64
}

func (m *SetResponse) appendWire(b []byte) []byte {
	return appendInt64(b, 1, m.OldValue)
}

func (m *SetResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	if num == 1 && typ == protowire.VarintType {
		return consumeInt64(b, &m.OldValue)
	}
	return skipField(num, typ, b)
}

// ListRequest asks for every loaded plugin.
//
//	message ListRequest {}
type ListRequest struct{}

func (m *ListRequest) appendWire(b []byte) []byte { return b }

func (m *ListRequest) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	return skipField(num, typ, b)
}

// ListResponse lists loaded plugins in load order.
//
//	message ListResponse { repeated PluginInfo plugins = 1; }
type ListResponse struct {
	Plugins []PluginInfo
}

func (m *ListResponse) appendWire(b []byte) []byte {
	for i := range m.Plugins {
		b = appendMessage(b, 1, &m.Plugins[i])
	}
	return b
}

func (m *ListResponse) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	if num == 1 && typ == protowire.BytesType {
		var p PluginInfo
		n, err := consumeMessage(b, &p)
		if err != nil {
			return 0, err
		}
		m.Plugins = append(m.Plugins, p)
		return n, nil
	}
	return skipField(num, typ, b)
}

// PluginInfo describes one loaded plugin.
//
//	message PluginInfo {
//	  string name = 1;
//	  string path = 2;
//	  int64 size = 3;
//	  google.protobuf.Timestamp load_time = 4;
//	}
type PluginInfo struct {
	Name     string
	Path     string
	Size     int64
	LoadTime time.Time
}

func (m *PluginInfo) appendWire(b []byte) []byte {
	b = appendString(b, 1, m.Name)
	b = appendString(b, 2, m.Path)
	b = appendInt64(b, 3, m.Size)
	if !m.LoadTime.IsZero() {
		b = appendMessage(b, 4, &timestamp{seconds: m.LoadTime.Unix(), nanos: int64(m.LoadTime.Nanosecond())})
	}
	return b
}

func (m *PluginInfo) consumeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch {
	case num == 1 && typ == protowire.BytesType:
		return consumeString(b, &m.Name)
	case num == 2 && typ == protowire.BytesType:
		return consumeString(b, &m.Path)
	case num == 3 && typ == protowire.VarintType:
		return consumeInt64(b, &m.Size)
	case num == 4 && typ == protowire.BytesType:
		var ts timestamp
		n, err := consumeMessage(b, &ts)
		if err != nil {
			return 0, err
		}
		m.LoadTime = ts.time()
		return n, nil
	}
	return skipField(num, typ, b)
}
