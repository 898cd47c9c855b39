package ejson

/*
	easy json: a closed json value tree plus conversion from arbitrary go values
*/

import (
	"sort"
)

type Kind uint8

const (
	Null Kind = iota
	Bool
	Int
	Double
	String
	Array
	Object
)

var kindNames = [...]string{"null", "bool", "int", "double", "string", "array", "object"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Value is one json node. The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

func NullValue() Value             { return Value{} }
func BoolValue(b bool) Value       { return Value{kind: Bool, b: b} }
func IntValue(i int64) Value       { return Value{kind: Int, i: i} }
func DoubleValue(f float64) Value  { return Value{kind: Double, f: f} }
func StringValue(s string) Value   { return Value{kind: String, s: s} }
func ArrayValue(vs ...Value) Value { return Value{kind: Array, arr: vs} }

// ObjectValue takes ownership of m.
func ObjectValue(m map[string]Value) Value {
	if m == nil {
		m = make(map[string]Value)
	}
	return Value{kind: Object, obj: m}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsNull() bool {
	return v.kind == Null
}

func (v Value) Bool() bool {
	return v.kind == Bool && v.b
}

// Int converts doubles by truncation, other kinds give 0.
func (v Value) Int() int64 {
	switch v.kind {
	case Int:
		return v.i
	case Double:
		return int64(v.f)
	}
	return 0
}

func (v Value) Float() float64 {
	switch v.kind {
	case Int:
		return float64(v.i)
	case Double:
		return v.f
	}
	return 0
}

func (v Value) Str() string {
	if v.kind == String {
		return v.s
	}
	return ""
}

// Len is the element count of an array or object.
func (v Value) Len() int {
	switch v.kind {
	case Array:
		return len(v.arr)
	case Object:
		return len(v.obj)
	}
	return 0
}

// Index returns Null when out of range or not an array.
func (v Value) Index(i int) Value {
	if v.kind != Array || i < 0 || i >= len(v.arr) {
		return Value{}
	}
	return v.arr[i]
}

func (v Value) Get(key string) (Value, bool) {
	if v.kind != Object {
		return Value{}, false
	}
	rs, ok := v.obj[key]
	return rs, ok
}

// Keys are returned sorted.
func (v Value) Keys() []string {
	if v.kind != Object {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set adds or replaces a member. v must be an object.
func (v Value) Set(key string, member Value) {
	if v.kind == Object {
		v.obj[key] = member
	}
}

func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case Null:
		return true
	case Bool:
		return v.b == o.b
	case Int:
		return v.i == o.i
	case Double:
		return v.f == o.f
	case String:
		return v.s == o.s
	case Array:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case Object:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, m := range v.obj {
			om, ok := o.obj[k]
			if !ok || !m.Equal(om) {
				return false
			}
		}
		return true
	}
	return false
}
