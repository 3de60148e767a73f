package jsonutil

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexibleStringValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"string", `"123"`, "123"},
		{"integer number", `50475540`, "50475540"},
		{"negative sentinel", `-1`, "-1"},
		{"float number", `1.5`, "1.5"},
		{"boolean", `true`, "true"},
		{"null", `null`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FlexibleStringValue(json.RawMessage(tt.input)))
		})
	}
}

func TestFlexibleFloatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
	}{
		{"number", `120`, 120},
		{"fraction", `30.5`, 30.5},
		{"numeric string", `"45"`, 45},
		{"comma decimal string", `"1,5"`, 1.5},
		{"garbage string", `"abc"`, 0},
		{"null", `null`, 0},
		{"absent", ``, 0},
		{"object", `{"x":1}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FlexibleFloatValue(json.RawMessage(tt.input)))
		})
	}
}

func TestParseOptionalInt(t *testing.T) {
	unset := []string{``, `null`, `""`, `"   "`}
	for _, in := range unset {
		v, err := ParseOptionalInt(json.RawMessage(in))
		require.NoError(t, err, in)
		assert.Nil(t, v, in)
	}

	v, err := ParseOptionalInt(json.RawMessage(`500`))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 500, *v)

	v, err = ParseOptionalInt(json.RawMessage(`"300"`))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 300, *v)

	v, err = ParseOptionalInt(json.RawMessage(`0`))
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, 0, *v)

	for _, bad := range []string{`-5`, `"12.5"`, `"abc"`, `true`} {
		_, err := ParseOptionalInt(json.RawMessage(bad))
		assert.Error(t, err, bad)
	}
}
