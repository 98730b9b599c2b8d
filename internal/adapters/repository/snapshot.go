package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"google.golang.org/protobuf/encoding/protowire"
)

// Snapshot layout, in protobuf wire format:
//
//	message Karmae { map<string, int32> values = 1; }
//
// Each map entry is a length-delimited field 1 holding key (1) and value (2).
const (
	valuesField     protowire.Number = 1
	entryKeyField   protowire.Number = 1
	entryValueField protowire.Number = 2
)

func encodeSnapshot(values map[string]int64) []byte {
	terms := make([]string, 0, len(values))
	for term := range values {
		terms = append(terms, term)
	}
	sort.Strings(terms)

	var b []byte
	for _, term := range terms {
		var entry []byte
		entry = protowire.AppendTag(entry, entryKeyField, protowire.BytesType)
		entry = protowire.AppendString(entry, term)
		entry = protowire.AppendTag(entry, entryValueField, protowire.VarintType)
		entry = protowire.AppendVarint(entry, uint64(values[term]))

		b = protowire.AppendTag(b, valuesField, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

func decodeSnapshot(b []byte) (map[string]int64, error) {
	values := make(map[string]int64)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		b = b[n:]

		if num != valuesField || typ != protowire.BytesType {
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("%w: field %d: %w", ErrCorruptSnapshot, num, protowire.ParseError(n))
			}
			b = b[n:]
			continue
		}

		entry, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return nil, fmt.Errorf("%w: entry: %w", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		b = b[n:]

		term, value, err := decodeEntry(entry)
		if err != nil {
			return nil, err
		}
		values[term] = value
	}
	return values, nil
}

func decodeEntry(b []byte) (string, int64, error) {
	var (
		term  string
		value int64
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return "", 0, fmt.Errorf("%w: entry tag: %w", ErrCorruptSnapshot, protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == entryKeyField && typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: term: %w", ErrCorruptSnapshot, protowire.ParseError(n))
			}
			if !utf8.ValidString(s) {
				return "", 0, fmt.Errorf("%w: term is not valid UTF-8", ErrCorruptSnapshot)
			}
			term = s
			b = b[n:]
		case num == entryValueField && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: score: %w", ErrCorruptSnapshot, protowire.ParseError(n))
			}
			value = int64(v)
			b = b[n:]
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return "", 0, fmt.Errorf("%w: entry field %d: %w", ErrCorruptSnapshot, num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return term, value, nil
}

// writeSnapshot replaces the file at path with the encoded values.
func writeSnapshot(path string, values map[string]int64) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create directory: %w", ErrWriteSnapshot, err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encodeSnapshot(values), 0o644); err != nil {
		return fmt.Errorf("%w: write temp file: %w", ErrWriteSnapshot, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: rename temp file: %w", ErrWriteSnapshot, err)
	}
	return nil
}
