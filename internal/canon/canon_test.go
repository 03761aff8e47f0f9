package canon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	a, err := Marshal(map[string]any{"b": 1, "a": 2, "c": 3})
	require.NoError(t, err)
	assert.Equal(t, `{"a":2,"b":1,"c":3}`, string(a))
}

func TestMarshal_NestedAndSlices(t *testing.T) {
	v := map[string]any{
		"z": []any{3, 1, 2},
		"a": map[string]any{"y": "hi", "x": 1},
	}
	out, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, `{"a":{"x":1,"y":"hi"},"z":[3,1,2]}`, string(out))
}

func TestMarshal_Deterministic(t *testing.T) {
	v := struct {
		B string
		A int
	}{B: "x", A: 1}

	out1, err := Marshal(v)
	require.NoError(t, err)
	out2, err := Marshal(v)
	require.NoError(t, err)
	assert.Equal(t, out1, out2)
}

func TestMarshal_NoInsignificantWhitespace(t *testing.T) {
	out, err := Marshal(map[string]any{"a": 1, "b": []any{1, 2}})
	require.NoError(t, err)
	assert.NotContains(t, string(out), " ")
	assert.NotContains(t, string(out), "\n")
}

func TestMarshal_DifferentValuesDifferentBytes(t *testing.T) {
	a, _ := Marshal(map[string]any{"x": 1})
	b, _ := Marshal(map[string]any{"x": 2})
	assert.NotEqual(t, a, b)
}
