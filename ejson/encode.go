package ejson

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	styledIndent = "   "
	rightMargin  = 74
)

// String is the compact encoding.
func (v Value) String() string {
	var buf bytes.Buffer
	v.writeCompact(&buf)
	return buf.String()
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.writeCompact(&buf)
	return buf.Bytes(), nil
}

// Styled renders v human readable: members on their own lines indented by
// three spaces, object keys sorted, short scalar arrays kept on one line and a
// trailing newline.
func (v Value) Styled() string {
	w := &styledWriter{}
	w.writeValue(v)
	w.buf.WriteByte('\n')
	return w.buf.String()
}

func (v Value) writeCompact(buf *bytes.Buffer) {
	switch v.kind {
	case Array:
		buf.WriteByte('[')
		for i, m := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			m.writeCompact(buf)
		}
		buf.WriteByte(']')
	case Object:
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			v.obj[k].writeCompact(buf)
		}
		buf.WriteByte('}')
	default:
		writeScalar(buf, v)
	}
}

type styledWriter struct {
	buf    bytes.Buffer
	indent string
}

func (w *styledWriter) writeValue(v Value) {
	switch v.kind {
	case Array:
		w.writeArray(v)
	case Object:
		if len(v.obj) == 0 {
			w.buf.WriteString("{}")
			return
		}
		w.buf.WriteString("{\n")
		w.indent += styledIndent
		for i, k := range v.Keys() {
			if i > 0 {
				w.buf.WriteString(",\n")
			}
			w.buf.WriteString(w.indent)
			writeString(&w.buf, k)
			w.buf.WriteString(" : ")
			w.writeValue(v.obj[k])
		}
		w.indent = w.indent[:len(w.indent)-len(styledIndent)]
		w.buf.WriteString("\n" + w.indent + "}")
	default:
		writeScalar(&w.buf, v)
	}
}

func (w *styledWriter) writeArray(v Value) {
	if len(v.arr) == 0 {
		w.buf.WriteString("[]")
		return
	}
	if line, ok := singleLine(v.arr); ok {
		w.buf.WriteString(line)
		return
	}
	w.buf.WriteString("[\n")
	w.indent += styledIndent
	for i, m := range v.arr {
		if i > 0 {
			w.buf.WriteString(",\n")
		}
		w.buf.WriteString(w.indent)
		w.writeValue(m)
	}
	w.indent = w.indent[:len(w.indent)-len(styledIndent)]
	w.buf.WriteString("\n" + w.indent + "]")
}

// an array fits on one line when it holds no non-empty container and stays under the margin
func singleLine(arr []Value) (string, bool) {
	parts := make([]string, len(arr))
	width := len(arr) * 3
	for i, m := range arr {
		if (m.kind == Array || m.kind == Object) && m.Len() > 0 {
			return "", false
		}
		var buf bytes.Buffer
		if m.kind == Array {
			buf.WriteString("[]")
		} else if m.kind == Object {
			buf.WriteString("{}")
		} else {
			writeScalar(&buf, m)
		}
		parts[i] = buf.String()
		width += len(parts[i])
		if width >= rightMargin {
			return "", false
		}
	}
	return "[ " + strings.Join(parts, ", ") + " ]", true
}

func writeScalar(buf *bytes.Buffer, v Value) {
	switch v.kind {
	case Null:
		buf.WriteString("null")
	case Bool:
		buf.WriteString(strconv.FormatBool(v.b))
	case Int:
		buf.WriteString(strconv.FormatInt(v.i, 10))
	case Double:
		buf.WriteString(formatDouble(v.f))
	case String:
		writeString(buf, v.s)
	}
}

// json has no representation for nan or infinity, they are written as null
func formatDouble(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

const hex = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"', '\\':
				buf.WriteByte('\\')
				buf.WriteByte(c)
			case '\n':
				buf.WriteString(`\n`)
			case '\r':
				buf.WriteString(`\r`)
			case '\t':
				buf.WriteString(`\t`)
			case '\b':
				buf.WriteString(`\b`)
			case '\f':
				buf.WriteString(`\f`)
			default:
				if c < 0x20 {
					buf.WriteString(`\u00`)
					buf.WriteByte(hex[c>>4])
					buf.WriteByte(hex[c&0xf])
				} else {
					buf.WriteByte(c)
				}
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			buf.WriteString(`�`)
		} else {
			buf.WriteString(s[i : i+size])
		}
		i += size
	}
	buf.WriteByte('"')
}

// Decode parses json text. Numbers without a fraction or exponent that fit an
// int64 become Int, all other numbers Double.
func Decode(buf []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return Value{}, err
	}
	return fromDecoded(raw), nil
}

func DecodeString(s string) (Value, error) {
	return Decode([]byte(s))
}

func (v *Value) UnmarshalJSON(buf []byte) error {
	rs, err := Decode(buf)
	if err != nil {
		return err
	}
	*v = rs
	return nil
}

func fromDecoded(raw interface{}) Value {
	switch t := raw.(type) {
	case nil:
		return Value{}
	case bool:
		return BoolValue(t)
	case string:
		return StringValue(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return IntValue(i)
		}
		f, _ := t.Float64()
		return DoubleValue(f)
	case []interface{}:
		arr := make([]Value, len(t))
		for i, m := range t {
			arr[i] = fromDecoded(m)
		}
		return ArrayValue(arr...)
	case map[string]interface{}:
		obj := make(map[string]Value, len(t))
		for k, m := range t {
			obj[k] = fromDecoded(m)
		}
		return ObjectValue(obj)
	}
	return Value{}
}
