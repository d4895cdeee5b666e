package sanitize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeJSON_PreservesOrderAndNumbers(t *testing.T) {
	v, err := DecodeJSON([]byte(`{"z": 1, "a": [2.50, true, null], "m": {"y": "Bob Smith", "b": "ok"}}`))
	require.NoError(t, err)

	m, ok := v.(Mapping)
	require.True(t, ok)
	assert.Equal(t, []string{"z", "a", "m"}, m.Keys())
	assert.Equal(t, NewScalar(json.Number("1")), field(m, "z"))

	out, err := EncodeJSON(Sanitize(nil, v), "")
	require.NoError(t, err)
	assert.Equal(t, `{"z":1,"a":[2.50,true,null],"m":{"y":"[REDACTED]","b":"ok"}}`, string(out))
}

func TestDecodeJSON_Errors(t *testing.T) {
	for _, input := range []string{``, `{"a":`, `{"a": 1} {"b": 2}`, `[1, 2`} {
		_, err := DecodeJSON([]byte(input))
		assert.Error(t, err, "input %q", input)
	}
}

func TestDecodeJSON_Depth(t *testing.T) {
	nested := func(depth int) []byte {
		return []byte(strings.Repeat(`[`, depth) + `"Call 555-123-4567"` + strings.Repeat(`]`, depth))
	}

	v, err := DecodeJSON(nested(MaxDepth))
	require.NoError(t, err)
	out, err := EncodeJSON(Sanitize(nil, v), "")
	require.NoError(t, err)
	assert.Contains(t, string(out), `"Call [REDACTED]"`)

	_, err = DecodeJSON(nested(MaxDepth + 1))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTooDeep)

	_, err = DecodeJSON([]byte(strings.Repeat(`{"a":`, MaxDepth+1) + `1` + strings.Repeat(`}`, MaxDepth+1)))
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestEncodeJSON_Indent(t *testing.T) {
	out, err := EncodeJSON(Mapping{{Key: "b", Value: Sequence{}}, {Key: "a", Value: String("x")}}, "  ")
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"b\": [],\n  \"a\": \"x\"\n}", string(out))
}

func TestMarshalJSON_ThroughEncodingJSON(t *testing.T) {
	payload := struct {
		Data Value `json:"data"`
	}{
		Data: Mapping{{Key: "k", Value: Sequence{String("v"), NewScalar(3)}}},
	}
	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.Equal(t, `{"data":{"k":["v",3]}}`, string(out))
}
