// Package canon produces the single canonical JSON encoding used
// everywhere this module hashes or signs a value: sorted object keys,
// minimal separators, UTF-8 bytes. Every hash pre-image and signature
// pre-image in the core goes through Marshal so there is exactly one
// canonicalization rule to reason about.
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Marshal encodes v as canonical JSON: object keys sorted
// lexicographically at every nesting level, no insignificant
// whitespace. v is first round-tripped through encoding/json so any
// Go value (struct, map, slice, primitive) that is itself
// JSON-marshalable is accepted.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canon: decode for canonicalization: %w", err)
	}

	var buf bytes.Buffer
	if err := encode(&buf, generic); err != nil {
		return nil, fmt.Errorf("canon: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// MarshalString is Marshal with a string result, for call sites that
// build the pre-image directly into a hash.Hash or sign over text.
func MarshalString(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// encode walks a decoded JSON value (produced with UseNumber) and
// writes its canonical form: object keys sorted, minimal separators
// (no spaces after ':' or ','), strings escaped by encoding/json rules.
func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			keyBytes, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(keyBytes)
			buf.WriteByte(':')
			if err := encode(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')

	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')

	case json.Number:
		buf.WriteString(val.String())

	case string:
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)

	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}

	case nil:
		buf.WriteString("null")

	default:
		// Fallback for types encoding/json decodes to something other
		// than the above (should not occur given UseNumber decoding).
		b, err := json.Marshal(val)
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	return nil
}
