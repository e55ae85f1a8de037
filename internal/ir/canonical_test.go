package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalAttrsBasic(t *testing.T) {
	tests := []struct {
		name     string
		input    Attrs
		expected string
	}{
		{"empty", Attrs{}, "{}"},
		{"string", Attrs{"title": String("hello")}, `{"title":"hello"}`},
		{"int", Attrs{"rank": Int(-42)}, `{"rank":-42}`},
		{"max int64", Attrs{"n": Int(9223372036854775807)}, `{"n":9223372036854775807}`},
		{"bool", Attrs{"done": Bool(true)}, `{"done":true}`},
		{"null", Attrs{"note": Null{}}, `{"note":null}`},
		{"sorted keys", Attrs{"zebra": Int(1), "alpha": Int(2), "beta": Int(3)}, `{"alpha":2,"beta":3,"zebra":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalAttrs(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, string(got))
		})
	}
}

func TestMarshalAttrsEscaping(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"html not escaped", "<a>&", `"<a>&"`},
		{"quote and backslash", `say "hi" \o/`, `"say \"hi\" \\o/"`},
		{"newline and tab", "a\nb\tc", `"a\nb\tc"`},
		{"control char", "\x01", `"\u0001"`},
		{"line separator kept literal", "a\u2028b", "\"a\u2028b\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MarshalAttrs(Attrs{"k": String(tt.input)})
			require.NoError(t, err)
			assert.Equal(t, `{"k":`+tt.expected+`}`, string(got))
		})
	}
}

func TestMarshalAttrsNFC(t *testing.T) {
	// "e" + combining acute accent normalizes to the precomposed "é".
	decomposed := Attrs{"name": String("Caf\u0065\u0301")}
	composed := Attrs{"name": String("Caf\u00e9")}

	a, err := MarshalAttrs(decomposed)
	require.NoError(t, err)
	b, err := MarshalAttrs(composed)
	require.NoError(t, err)

	assert.Equal(t, string(b), string(a))
}

func TestMarshalAttrsUTF16KeyOrder(t *testing.T) {
	// U+FFFD sorts before U+10000 in UTF-8 but after it in UTF-16
	// (U+10000 encodes as the surrogate pair D800 DC00).
	attrs := Attrs{
		"\U00010000": Int(1),
		"\uFFFD":     Int(2),
	}

	got, err := MarshalAttrs(attrs)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":1,\"\uFFFD\":2}", string(got))
}

func TestUnmarshalAttrsRoundTrip(t *testing.T) {
	in := Attrs{
		"title": String("buy milk"),
		"rank":  Int(3),
		"done":  Bool(false),
		"note":  Null{},
	}

	data, err := MarshalAttrs(in)
	require.NoError(t, err)

	out, err := UnmarshalAttrs(data)
	require.NoError(t, err)
	assert.True(t, in.Equal(out), "round trip mismatch: %v != %v", in, out)
}

func TestUnmarshalAttrsRejectsFloats(t *testing.T) {
	for _, input := range []string{`{"x":1.5}`, `{"x":1e3}`} {
		_, err := UnmarshalAttrs([]byte(input))
		assert.Error(t, err, input)
	}
}

func TestUnmarshalAttrsRejectsNested(t *testing.T) {
	_, err := UnmarshalAttrs([]byte(`{"x":{"y":1}}`))
	assert.Error(t, err)

	_, err = UnmarshalAttrs([]byte(`{"x":[1]}`))
	assert.Error(t, err)
}
