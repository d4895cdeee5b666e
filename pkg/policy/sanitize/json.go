package sanitize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// MaxDepth is the deepest object and array nesting DecodeJSON accepts.
const MaxDepth = 512

// ErrTooDeep is returned for documents nested deeper than MaxDepth.
var ErrTooDeep = errors.New("sanitize: document nested too deeply")

// DecodeJSON parses a JSON document into a Value, preserving object key order.
// Numbers are kept as json.Number so integers and floats survive unchanged.
func DecodeJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0)
	if err != nil {
		if errors.Is(err, ErrTooDeep) {
			return nil, err
		}
		return nil, fmt.Errorf("sanitize: decode json: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("sanitize: decode json: unexpected trailing data")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder, depth int) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return Scalar{v: tok}, nil
	}
	if depth >= MaxDepth {
		return nil, ErrTooDeep
	}

	switch delim {
	case '{':
		out := Mapping{}
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("expected object key, got %v", keyTok)
			}
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, Field{Key: key, Value: val})
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return out, nil
	case '[':
		out := Sequence{}
		for dec.More() {
			val, err := decodeValue(dec, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected delimiter %q", delim)
	}
}

// EncodeJSON renders v as JSON. A non-empty indent pretty-prints the output.
func EncodeJSON(v Value, indent string) ([]byte, error) {
	var raw bytes.Buffer
	if err := writeValue(&raw, v); err != nil {
		return nil, err
	}
	if indent == "" {
		return raw.Bytes(), nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw.Bytes(), "", indent); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// MarshalJSON encodes the mapping as an object with keys in order.
func (m Mapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes the sequence as an array.
func (s Sequence) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON encodes the wrapped leaf.
func (s Scalar) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.v)
}

func writeValue(buf *bytes.Buffer, v Value) error {
	switch t := v.(type) {
	case Mapping:
		buf.WriteByte('{')
		for i, f := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(f.Key)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeValue(buf, f.Value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case Sequence:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeValue(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case Scalar:
		leaf, err := json.Marshal(t.v)
		if err != nil {
			return fmt.Errorf("sanitize: encode scalar: %w", err)
		}
		buf.Write(leaf)
	default:
		buf.WriteString("null")
	}
	return nil
}
