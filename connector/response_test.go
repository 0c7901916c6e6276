package connector

import (
	"encoding/json"
	"testing"

	"github.com/BaSui01/uniconnect/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractContent(t *testing.T) {
	payload, err := decodePayload([]byte(`{
		"choices": [{"message": {"content": "hello"}}],
		"score": 42,
		"ratio": 0.50,
		"ok": true,
		"missing": null,
		"obj": {"b": 1, "a": "<x>"},
		"arr": [1, "two"]
	}`))
	require.NoError(t, err)

	tests := []struct {
		field string
		want  string
	}{
		{"choices.0.message.content", "hello"},
		{"score", "42"},
		{"ratio", "0.50"},
		{"ok", "true"},
		{"obj", `{"a":"<x>","b":1}`},
		{"arr", `[1,"two"]`},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := ExtractContent(payload, tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractContent_ParseErrors(t *testing.T) {
	payload := map[string]any{"choices": []any{}, "missing": nil}

	for _, field := range []string{"choices.0.message.content", "missing", "absent", "choices.x"} {
		_, err := ExtractContent(payload, field)
		require.Error(t, err, field)
		assert.True(t, types.IsKind(err, types.KindParse), field)
	}
}

func TestCoerce(t *testing.T) {
	assert.Equal(t, "plain", Coerce("plain"))
	assert.Equal(t, "3.25", Coerce(3.25))
	assert.Equal(t, "7", Coerce(json.Number("7")))
	assert.Equal(t, "false", Coerce(false))
	assert.Equal(t, "null", Coerce(nil))
	assert.Equal(t, `{"k":["v"]}`, Coerce(map[string]any{"k": []any{"v"}}))
}

func TestResponse_Err(t *testing.T) {
	ok := &Response{Success: true, ErrorKind: types.KindSuccess}
	assert.NoError(t, ok.Err())

	failed := &Response{ErrorKind: types.KindRateLimit, Error: "slow", StatusCode: 429}
	err := failed.Err()
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindRateLimit))
}
