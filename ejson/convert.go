package ejson

import (
	"fmt"
	"reflect"
	"sort"
)

const FunctionPlaceholder = "<function ptr>"

// FromGo converts an arbitrary go value. Maps whose keys are exactly the
// integers 1..n become arrays in key order, every other map becomes an
// object with its keys printed as strings. Functions are never called.
func FromGo(x interface{}) Value {
	switch t := x.(type) {
	case nil:
		return Value{}
	case Value:
		return t
	case *Value:
		if t == nil {
			return Value{}
		}
		return *t
	case bool:
		return BoolValue(t)
	case string:
		return StringValue(t)
	case []byte:
		return StringValue(string(t))
	case int:
		return IntValue(int64(t))
	case int64:
		return IntValue(t)
	case float64:
		return DoubleValue(t)
	case fmt.Stringer:
		if reflect.ValueOf(x).Kind() != reflect.Map && reflect.ValueOf(x).Kind() != reflect.Slice {
			return StringValue(t.String())
		}
	}
	return fromReflect(reflect.ValueOf(x))
}

func fromReflect(rv reflect.Value) Value {
	switch rv.Kind() {
	case reflect.Invalid:
		return Value{}
	case reflect.Bool:
		return BoolValue(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IntValue(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return IntValue(int64(rv.Uint()))
	case reflect.Float32, reflect.Float64:
		return DoubleValue(rv.Float())
	case reflect.String:
		return StringValue(rv.String())
	case reflect.Func:
		return StringValue(FunctionPlaceholder)
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return Value{}
		}
		return FromGo(rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return ArrayValue()
		}
		arr := make([]Value, rv.Len())
		for i := range arr {
			arr[i] = FromGo(rv.Index(i).Interface())
		}
		return ArrayValue(arr...)
	case reflect.Map:
		return fromMap(rv)
	case reflect.Struct:
		return fromStruct(rv)
	}
	return StringValue(fmt.Sprint(rv.Interface()))
}

func fromMap(rv reflect.Value) Value {
	keys := rv.MapKeys()
	if idx, ok := sequenceKeys(keys); ok {
		arr := make([]Value, len(keys))
		for i, k := range keys {
			arr[idx[i]-1] = FromGo(rv.MapIndex(k).Interface())
		}
		return ArrayValue(arr...)
	}
	obj := make(map[string]Value, len(keys))
	for _, k := range keys {
		obj[fmt.Sprint(k.Interface())] = FromGo(rv.MapIndex(k).Interface())
	}
	return ObjectValue(obj)
}

// sequenceKeys reports whether keys are exactly 1..len(keys), giving each key's position.
func sequenceKeys(keys []reflect.Value) ([]int, bool) {
	idx := make([]int, len(keys))
	for i, k := range keys {
		n, ok := intKey(k)
		if !ok || n < 1 || n > int64(len(keys)) {
			return nil, false
		}
		idx[i] = int(n)
	}
	seen := append([]int(nil), idx...)
	sort.Ints(seen)
	for i, n := range seen {
		if n != i+1 {
			return nil, false
		}
	}
	return idx, true
}

func intKey(k reflect.Value) (int64, bool) {
	if k.Kind() == reflect.Interface {
		k = k.Elem()
	}
	switch k.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return k.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(k.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := k.Float()
		if f == float64(int64(f)) {
			return int64(f), true
		}
	}
	return 0, false
}

// exported struct fields become object members, named by their json tag when present
func fromStruct(rv reflect.Value) Value {
	rt := rv.Type()
	obj := make(map[string]Value, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		if f.PkgPath != "" {
			continue
		}
		name := f.Name
		if tag := f.Tag.Get("json"); tag != "" {
			if tag == "-" {
				continue
			}
			for j := 0; j < len(tag); j++ {
				if tag[j] == ',' {
					tag = tag[:j]
					break
				}
			}
			if tag != "" {
				name = tag
			}
		}
		obj[name] = FromGo(rv.Field(i).Interface())
	}
	return ObjectValue(obj)
}
