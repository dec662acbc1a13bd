// Package value defines the in-memory representation of a parsed JSON
// document.
//
// A JSON value is one of
//
//	null    -> Null
//	true    -> Bool(true)
//	123.5   -> Number("123.5")
//	"foo"   -> String("foo")
//	[...]   -> *Array
//	{...}   -> *Object
//
// Numbers keep the literal representation found in the input, so no precision
// is lost until the value is mapped onto a Go type.  Object keys are unique
// and keep the order in which they were first inserted.
package value

import (
	"bytes"
	"strconv"
)

// Kind encodes the six possible JSON value types.  The four scalar kinds come
// first so they can be used to index per-scalar tables.
type Kind uint8

const (
	NullKind Kind = iota
	BoolKind
	NumberKind
	StringKind
	ArrayKind
	ObjectKind
)

var kindNames = [...]string{"null", "boolean", "number", "string", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// IsScalar is true for null, booleans, numbers and strings.
func (k Kind) IsScalar() bool {
	return k <= StringKind
}

// Value is implemented by all JSON values.  String returns the compact JSON
// encoding of the value.
type Value interface {
	Kind() Kind
	String() string
}

// Null is the JSON null value.
type Null struct{}

func (Null) Kind() Kind { return NullKind }
func (Null) String() string { return "null" }
func (Null) MarshalJSON() ([]byte, error) { return nullBytes, nil }

// Bool is a JSON boolean.
type Bool bool

func (b Bool) Kind() Kind { return BoolKind }

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Bool) MarshalJSON() ([]byte, error) {
	return AppendJSON(nil, b), nil
}

// Number is a JSON number, stored as its literal representation, e.g. the
// number 1.5e10 is Number("1.5e10").
type Number string

func (n Number) Kind() Kind { return NumberKind }
func (n Number) String() string { return string(n) }
func (n Number) MarshalJSON() ([]byte, error) { return []byte(n), nil }

// Int64 returns the number as an int64, failing if it is not an integer or
// is out of range.
func (n Number) Int64() (int64, error) {
	return strconv.ParseInt(string(n), 10, 64)
}

// Float64 returns the number as a float64.
func (n Number) Float64() (float64, error) {
	return strconv.ParseFloat(string(n), 64)
}

// String is a JSON string.  The value is the decoded text, without quotes or
// escape sequences.
type String string

func (s String) Kind() Kind { return StringKind }

func (s String) String() string {
	return string(appendString(nil, string(s)))
}

func (s String) MarshalJSON() ([]byte, error) {
	return appendString(nil, string(s)), nil
}

// Array is a JSON array.
type Array struct {
	Items []Value
}

// NewArray returns an array containing the given items.
func NewArray(items ...Value) *Array {
	return &Array{Items: items}
}

func (a *Array) Kind() Kind { return ArrayKind }
func (a *Array) String() string { return string(AppendJSON(nil, a)) }
func (a *Array) Len() int { return len(a.Items) }

// Append adds v at the end of the array.
func (a *Array) Append(v Value) {
	a.Items = append(a.Items, v)
}

func (a *Array) MarshalJSON() ([]byte, error) {
	return AppendJSON(nil, a), nil
}

// Object is a JSON object.  The zero value is an empty object ready to use.
type Object struct {
	keys   []string
	fields map[string]Value
}

// Field is a key-value pair used to build objects.
type Field struct {
	Key   string
	Value Value
}

// NewObject returns an object with the given fields, in order.
func NewObject(fields ...Field) *Object {
	o := &Object{}
	for _, f := range fields {
		o.Set(f.Key, f.Value)
	}
	return o
}

func (o *Object) Kind() Kind { return ObjectKind }
func (o *Object) String() string { return string(AppendJSON(nil, o)) }
func (o *Object) Len() int { return len(o.keys) }

// Set associates v with key.  If the key is already present its value is
// replaced and it keeps its original position.
func (o *Object) Set(key string, v Value) {
	if o.fields == nil {
		o.fields = make(map[string]Value)
	}
	if _, ok := o.fields[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.fields[key] = v
}

// Get returns the value associated with key, if any.
func (o *Object) Get(key string) (Value, bool) {
	v, ok := o.fields[key]
	return v, ok
}

// Keys returns the keys of the object in insertion order.  The returned slice
// must not be modified.
func (o *Object) Keys() []string {
	return o.keys
}

// Fields returns the key-value pairs of the object in insertion order.
func (o *Object) Fields() []Field {
	fields := make([]Field, len(o.keys))
	for i, k := range o.keys {
		fields[i] = Field{Key: k, Value: o.fields[k]}
	}
	return fields
}

func (o *Object) MarshalJSON() ([]byte, error) {
	return AppendJSON(nil, o), nil
}

// Equal reports whether v and w represent the same JSON value.  Numbers are
// compared by literal first and numerically if the literals differ.  Objects
// compare equal regardless of key order.
func Equal(v, w Value) bool {
	if v == nil || w == nil {
		return v == w
	}
	if v.Kind() != w.Kind() {
		return false
	}
	switch x := v.(type) {
	case Null:
		return true
	case Bool:
		y, ok := w.(Bool)
		return ok && x == y
	case String:
		y, ok := w.(String)
		return ok && x == y
	case Number:
		y, ok := w.(Number)
		if !ok {
			return false
		}
		if x == y {
			return true
		}
		// Fall back to slower conversion
		fx, errx := x.Float64()
		fy, erry := y.Float64()
		return errx == nil && erry == nil && fx == fy
	case *Array:
		y, ok := w.(*Array)
		if !ok || len(x.Items) != len(y.Items) {
			return false
		}
		for i, item := range x.Items {
			if !Equal(item, y.Items[i]) {
				return false
			}
		}
		return true
	case *Object:
		y, ok := w.(*Object)
		if !ok || x.Len() != y.Len() {
			return false
		}
		for _, k := range x.keys {
			yv, ok := y.fields[k]
			if !ok || !Equal(x.fields[k], yv) {
				return false
			}
		}
		return true
	default:
		return bytes.Equal(AppendJSON(nil, v), AppendJSON(nil, w))
	}
}

var (
	trueBytes  = []byte("true")
	falseBytes = []byte("false")
	nullBytes  = []byte("null")
)
