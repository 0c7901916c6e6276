package connector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/BaSui01/uniconnect/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const openAIConfigJSON = `{
  "name": "OpenAI Chat",
  "provider": "openai",
  "base_url": "https://api.openai.com/v1/",
  "auth": {"type": "header", "key_name": "Authorization", "value_template": "Bearer {credential}"},
  "request": {
    "endpoint": "/chat/completions",
    "static_fields": {
      "model": "gpt-4o-mini",
      "max_tokens": 1024,
      "messages": [{"role": "user", "content": "{prompt}"}]
    }
  },
  "response": {"response_field": "choices.0.message.content", "error_field": "error.message"}
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig_AppliesDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeFile(t, "openai.json", openAIConfigJSON))
	require.NoError(t, err)

	assert.Equal(t, "1.0", cfg.Version)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.False(t, cfg.Streaming)
	assert.Equal(t, "POST", cfg.Request.Method)
	assert.Equal(t, "prompt", cfg.Request.PromptField)
	assert.Equal(t, "application/json", cfg.Request.ContentType)
	assert.NotNil(t, cfg.Request.ExtraHeaders)
	assert.Equal(t, json.Number("1024"), cfg.Request.StaticFields["max_tokens"])
	assert.Equal(t, "error.message", cfg.Response.ErrorField)
}

func TestLoadConfig_YAML(t *testing.T) {
	path := writeFile(t, "local.yaml", `
name: local
provider: ollama
base_url: http://localhost:11434
request:
  endpoint: /api/generate
  prompt_field: prompt
  static_fields:
    model: llama3
    stream: false
response:
  response_field: response
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Nil(t, cfg.Auth)
	assert.Equal(t, "llama3", cfg.Request.StaticFields["model"])
	assert.Equal(t, false, cfg.Request.StaticFields["stream"])
}

func TestLoadConfig_RejectsMissingSections(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{"no request", `{"base_url":"http://x","request":null,"response":{"response_field":"a"}}`, "request section is required"},
		{"no response", `{"base_url":"http://x","request":{"endpoint":"/a"}}`, "response section is required"},
		{"empty response field", `{"base_url":"http://x","request":{"endpoint":"/a"},"response":{}}`, "response_field is required"},
		{"no base url", `{"request":{"endpoint":"/a"},"response":{"response_field":"a"}}`, "base_url is required"},
		{"bad method", `{"base_url":"http://x","request":{"endpoint":"/a","method":"put"},"response":{"response_field":"a"}}`, `unsupported method "PUT"`},
		{"bad auth", `{"base_url":"http://x","auth":{"type":"cookie","key_name":"k","value_template":"{credential}"},"request":{"endpoint":"/a"},"response":{"response_field":"a"}}`, `unsupported auth type "cookie"`},
		{"template without placeholder", `{"base_url":"http://x","auth":{"type":"header","key_name":"k","value_template":"static"},"request":{"endpoint":"/a"},"response":{"response_field":"a"}}`, "must contain {credential}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeFile(t, "c.json", tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadConfig_MalformedJSON(t *testing.T) {
	_, err := LoadConfig(writeFile(t, "c.json", `{"name":`))
	assert.ErrorIs(t, err, types.ErrInvalidConfig)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_MarshalWritesNullSections(t *testing.T) {
	c := &Config{Name: "bare", BaseURL: "http://x"}
	c.ApplyDefaults()
	data, err := c.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"auth", "request", "response"} {
		v, ok := raw[key]
		assert.True(t, ok, key)
		assert.Nil(t, v, key)
	}
}

func TestConfig_CloneIsDeep(t *testing.T) {
	c := &Config{
		Name:    "deep",
		BaseURL: "http://x",
		Auth:    &AuthSpec{Location: AuthHeader, KeyName: "X-Key"},
		Request: &RequestSpec{
			Endpoint:     "/v1",
			StaticFields: map[string]any{"params": map[string]any{"n": 1}},
			ExtraHeaders: map[string]string{"X-Org": "a"},
		},
		Response: &ResponseSpec{ResponseField: "out"},
	}
	cp := c.Clone()
	require.Equal(t, c, cp)

	cp.Auth.KeyName = "changed"
	cp.Request.ExtraHeaders["X-Org"] = "b"
	cp.Request.StaticFields["params"].(map[string]any)["n"] = 2
	cp.Response.ResponseField = "other"

	assert.Equal(t, "X-Key", c.Auth.KeyName)
	assert.Equal(t, "a", c.Request.ExtraHeaders["X-Org"])
	assert.Equal(t, 1, c.Request.StaticFields["params"].(map[string]any)["n"])
	assert.Equal(t, "out", c.Response.ResponseField)
}

func TestConfig_SaveLoadRoundTrip(t *testing.T) {
	orig, err := ParseConfig([]byte(openAIConfigJSON))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "openai.json")
	require.NoError(t, orig.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, orig, loaded)
}

// ----------------------------------------------------------------------------
// property tests
// ----------------------------------------------------------------------------

func TestProperty_ConfigRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)

	properties.Property("parse(marshal(c)) == c", prop.ForAll(
		func(name, endpoint, word string, withAuth, streaming bool, timeout, number int, headers map[string]string, locIdx int) bool {
			c := &Config{
				Name:           name,
				Provider:       word,
				BaseURL:        "https://" + word + ".example",
				Streaming:      streaming,
				TimeoutSeconds: timeout,
				Request: &RequestSpec{
					Endpoint:    "/" + endpoint,
					PromptField: "input." + word,
					StaticFields: map[string]any{
						"model":      word,
						"max_tokens": json.Number(strconv.Itoa(number)),
						"nested": map[string]any{
							"flag": streaming,
							"list": []any{name, json.Number("0.5"), nil},
						},
					},
					ExtraHeaders: headers,
				},
				Response: &ResponseSpec{ResponseField: "data." + endpoint},
			}
			if withAuth {
				c.Auth = &AuthSpec{Location: []AuthLocation{AuthHeader, AuthQuery, AuthBody}[locIdx], KeyName: word, ValueTemplate: "Key {credential}"}
				c.Response.ErrorField = "error"
			}
			c.ApplyDefaults()

			data, err := c.Marshal()
			if err != nil {
				return false
			}
			got, err := ParseConfig(data)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(c, got)
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.Identifier(),
		gen.Bool(),
		gen.Bool(),
		gen.IntRange(1, 600),
		gen.IntRange(-5000, 5000),
		gen.MapOf(gen.Identifier(), gen.AlphaString()),
		gen.IntRange(0, 2),
	))

	properties.TestingRun(t)
}
