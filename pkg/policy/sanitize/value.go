// Package sanitize redacts personal data and profanity from arbitrarily nested values.
//
// A value is one of three structural kinds: Mapping, Sequence or Scalar. Sanitize walks
// a value and returns a new value of identical shape in which every text scalar has had
// its sensitive spans replaced by the marker of the rule that matched them. Rules live in
// an immutable PatternSet that callers pass explicitly; Default returns the builtin set.
package sanitize

import (
	"reflect"
	"sort"
)

// Kind is the structural kind of a Value.
type Kind int

const (
	// KindScalar is a leaf: text, number, boolean, null or an opaque value.
	KindScalar Kind = iota
	// KindMapping is an ordered set of string-keyed fields.
	KindMapping
	// KindSequence is an ordered list of values.
	KindSequence
)

func (k Kind) String() string {
	switch k {
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "scalar"
	}
}

// Value is a closed variant over Mapping, Sequence and Scalar.
type Value interface {
	Kind() Kind
	isValue()
}

// Field is a single key/value entry of a Mapping.
type Field struct {
	Key   string
	Value Value
}

// Mapping is an ordered list of fields. Key order is preserved by every operation.
type Mapping []Field

// Sequence is an ordered list of values.
type Sequence []Value

// Scalar is a leaf value. Only scalars holding a Go string are subject to redaction.
type Scalar struct {
	v any
}

// Kind implements Value.
func (Mapping) Kind() Kind { return KindMapping }

// Kind implements Value.
func (Sequence) Kind() Kind { return KindSequence }

// Kind implements Value.
func (Scalar) Kind() Kind { return KindScalar }

func (Mapping) isValue()  {}
func (Sequence) isValue() {}
func (Scalar) isValue()   {}

// String returns a text scalar.
func String(s string) Scalar { return Scalar{v: s} }

// NewScalar wraps any leaf value. Containers are not inspected.
func NewScalar(v any) Scalar { return Scalar{v: v} }

// Null returns the null scalar.
func Null() Scalar { return Scalar{} }

// Text returns the string held by the scalar and whether it is a text scalar.
func (s Scalar) Text() (string, bool) {
	str, ok := s.v.(string)
	return str, ok
}

// IsNull reports whether the scalar holds nil.
func (s Scalar) IsNull() bool { return s.v == nil }

// Get returns the value of the first field named key.
func (m Mapping) Get(key string) (Value, bool) {
	for _, f := range m {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field keys in order.
func (m Mapping) Keys() []string {
	keys := make([]string, len(m))
	for i, f := range m {
		keys[i] = f.Key
	}
	return keys
}

// FromAny converts decoded Go data into a Value. Maps become mappings with sorted keys,
// since Go maps carry no order. Anything that is neither a known container nor a value
// already is wrapped as an opaque scalar.
func FromAny(v any) Value {
	switch t := v.(type) {
	case Value:
		return t
	case map[string]any:
		keys := sortedKeys(t)
		out := make(Mapping, 0, len(keys))
		for _, k := range keys {
			out = append(out, Field{Key: k, Value: FromAny(t[k])})
		}
		return out
	case map[string]string:
		keys := sortedKeys(t)
		out := make(Mapping, 0, len(keys))
		for _, k := range keys {
			out = append(out, Field{Key: k, Value: String(t[k])})
		}
		return out
	case []any:
		out := make(Sequence, len(t))
		for i, item := range t {
			out[i] = FromAny(item)
		}
		return out
	case []string:
		out := make(Sequence, len(t))
		for i, item := range t {
			out[i] = String(item)
		}
		return out
	case []map[string]any:
		out := make(Sequence, len(t))
		for i, item := range t {
			out[i] = FromAny(item)
		}
		return out
	default:
		return Scalar{v: v}
	}
}

// ToAny converts a Value back into plain Go data.
func ToAny(v Value) any {
	switch t := v.(type) {
	case Mapping:
		out := make(map[string]any, len(t))
		for _, f := range t {
			out[f.Key] = ToAny(f.Value)
		}
		return out
	case Sequence:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToAny(item)
		}
		return out
	case Scalar:
		return t.v
	default:
		return nil
	}
}

// Equal reports whether a and b have the same shape, key order and leaves.
func Equal(a, b Value) bool {
	switch ta := a.(type) {
	case Mapping:
		tb, ok := b.(Mapping)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if ta[i].Key != tb[i].Key || !Equal(ta[i].Value, tb[i].Value) {
				return false
			}
		}
		return true
	case Sequence:
		tb, ok := b.(Sequence)
		if !ok || len(ta) != len(tb) {
			return false
		}
		for i := range ta {
			if !Equal(ta[i], tb[i]) {
				return false
			}
		}
		return true
	case Scalar:
		tb, ok := b.(Scalar)
		return ok && reflect.DeepEqual(ta.v, tb.v)
	default:
		return a == nil && b == nil
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
