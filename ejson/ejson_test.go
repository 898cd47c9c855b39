package ejson

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromGoSequenceMapIsArray(t *testing.T) {
	v := FromGo(map[int]interface{}{2: "b", 1: "a", 3: 3})
	require.Equal(t, Array, v.Kind())
	assert.Equal(t, `["a","b",3]`, v.String())

	gap := FromGo(map[int]string{1: "a", 3: "c"})
	assert.Equal(t, Object, gap.Kind())
	assert.Equal(t, `{"1":"a","3":"c"}`, gap.String())

	mixed := FromGo(map[interface{}]interface{}{1: "a", "name": "x"})
	assert.Equal(t, Object, mixed.Kind())

	assert.Equal(t, `[]`, FromGo(map[string]int{}).String())
}

func TestFromGoFunctionPlaceholder(t *testing.T) {
	called := false
	v := FromGo(map[string]interface{}{"cb": func() { called = true }, "n": nil})
	cb, ok := v.Get("cb")
	require.True(t, ok)
	assert.Equal(t, FunctionPlaceholder, cb.Str())
	n, _ := v.Get("n")
	assert.True(t, n.IsNull())
	assert.False(t, called)
}

func TestFromGoScalars(t *testing.T) {
	assert.Equal(t, IntValue(7), FromGo(int32(7)))
	assert.Equal(t, DoubleValue(1.5), FromGo(float32(1.5)))
	assert.Equal(t, BoolValue(true), FromGo(true))
	assert.Equal(t, `{"name":"x","v":2}`, FromGo(struct {
		Name string `json:"name"`
		V    int    `json:"v,omitempty"`
		skip int
	}{Name: "x", V: 2}).String())
}

func TestStyled(t *testing.T) {
	v := ObjectValue(map[string]Value{
		"b":    ArrayValue(IntValue(1), IntValue(2)),
		"a":    StringValue("x\"y"),
		"nest": ObjectValue(map[string]Value{"d": DoubleValue(2)}),
		"e":    ArrayValue(),
	})
	want := "{\n" +
		"   \"a\" : \"x\\\"y\",\n" +
		"   \"b\" : [ 1, 2 ],\n" +
		"   \"e\" : [],\n" +
		"   \"nest\" : {\n" +
		"      \"d\" : 2.0\n" +
		"   }\n" +
		"}\n"
	assert.Equal(t, want, v.Styled())
	assert.Equal(t, "null\n", NullValue().Styled())
}

func TestStyledNestedArray(t *testing.T) {
	v := ArrayValue(ArrayValue(IntValue(1)), IntValue(2))
	assert.Equal(t, "[\n   [ 1 ],\n   2\n]\n", v.Styled())
}

func TestDecode(t *testing.T) {
	v, err := DecodeString(`{"i": 3, "f": 1.25, "s": "x", "l": [true, null], "big": 1e3}`)
	require.NoError(t, err)
	i, _ := v.Get("i")
	assert.Equal(t, Int, i.Kind())
	assert.EqualValues(t, 3, i.Int())
	f, _ := v.Get("f")
	assert.Equal(t, Double, f.Kind())
	big, _ := v.Get("big")
	assert.Equal(t, Double, big.Kind())
	l, _ := v.Get("l")
	assert.True(t, l.Index(0).Bool())
	assert.True(t, l.Index(1).IsNull())

	back, err := DecodeString(v.Styled())
	require.NoError(t, err)
	assert.True(t, v.Equal(back))

	_, err = DecodeString(`{"a":`)
	assert.Error(t, err)
}

func TestControlCharsEscaped(t *testing.T) {
	assert.Equal(t, `"a\u0001\n"`, StringValue("a\x01\n").String())
}
