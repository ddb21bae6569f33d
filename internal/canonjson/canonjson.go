// Package canonjson implements the canonical JSON serialization spec.md §6
// mandates for every hashed definition and every on-disk store file: keys
// sorted lexicographically, UTF-8, no insignificant whitespace, numbers in
// shortest round-trippable form, literal booleans/null.
package canonjson

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
)

// Marshal encodes v as canonical JSON. v is first round-tripped through
// encoding/json (so struct tags, omitempty, and custom MarshalJSON methods
// behave normally) and the resulting generic value is then walked and
// re-encoded deterministically.
func Marshal(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonjson: marshal: %w", err)
	}
	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonjson: decode: %w", err)
	}
	var buf bytes.Buffer
	if err := encode(&buf, generic); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		return encodeNumber(buf, val)
	case string:
		encodeString(buf, val)
		return nil
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
		return nil
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
			encodeString(buf, k)
			buf.WriteByte(':')
			if err := encode(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	default:
		return fmt.Errorf("canonjson: unsupported decoded type %s", reflect.TypeOf(v))
	}
}

func encodeString(buf *bytes.Buffer, s string) {
	// encoding/json's string encoder already produces valid, minimal,
	// UTF-8-safe escaping; reuse it directly rather than reinventing it.
	raw, _ := json.Marshal(s)
	buf.Write(raw)
}

func encodeNumber(buf *bytes.Buffer, n json.Number) error {
	s := n.String()
	// Integers round-trip exactly as written.
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		buf.WriteString(s)
		return nil
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("canonjson: invalid number %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("canonjson: non-finite number %q", s)
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

// MustMarshal is Marshal but panics on error; used only for values whose
// shape is controlled entirely by this package's own types, where an
// error indicates a programming bug rather than bad input.
func MustMarshal(v any) []byte {
	b, err := Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
