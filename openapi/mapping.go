package openapi

import (
	"strings"

	"github.com/BaSui01/uniconnect/connector"
)

// InferPromptField picks where the prompt goes in a request schema and the
// body template that carries it. The first matching rule wins.
func (d *Document) InferPromptField(s *Schema) (string, map[string]any) {
	props := d.properties(s)
	if len(props) == 0 {
		return "prompt", placeholderTemplate("prompt")
	}

	if d.isArray(props["messages"]) {
		return "messages", map[string]any{
			"messages": []any{
				map[string]any{"role": "user", "content": connector.PromptPlaceholder},
			},
		}
	}
	for _, field := range []string{"message", "prompt", "content", "input", "text", "query"} {
		if _, ok := props[field]; ok {
			return field, placeholderTemplate(field)
		}
	}
	return "prompt", placeholderTemplate("prompt")
}

func (d *Document) isArray(s *Schema) bool {
	r := d.ResolveSchema(s)
	return r != nil && r.Type.Is("array")
}

func placeholderTemplate(field string) map[string]any {
	return map[string]any{field: connector.PromptPlaceholder}
}

// InferResponseField picks the dot-path of the generated text in a response
// schema. The first matching rule wins.
func (d *Document) InferResponseField(s *Schema) string {
	props := d.properties(s)
	if len(props) == 0 {
		return "response"
	}

	if _, ok := props["choices"]; ok {
		return "choices.0.message.content"
	}
	if content, ok := props["content"]; ok {
		if d.isArray(content) {
			return "content.0.text"
		}
		return "content"
	}
	if _, ok := props["text"]; ok {
		return "text"
	}
	if _, ok := props["generations"]; ok {
		return "generations.0.text"
	}
	if _, ok := props["message"]; ok {
		return "message.content"
	}
	for _, field := range []string{"response", "output", "completion", "result"} {
		if _, ok := props[field]; ok {
			return field
		}
	}
	return "response"
}

func bearerAuth() connector.AuthSpec {
	return connector.AuthSpec{
		Location:      connector.AuthHeader,
		KeyName:       "Authorization",
		ValueTemplate: "Bearer " + connector.CredentialPlaceholder,
	}
}

// DetectAuth returns the first usable security scheme in document order:
// http bearer or an apiKey in a header, query or body. Without one it
// falls back to a bearer Authorization header.
func (d *Document) DetectAuth() connector.AuthSpec {
	for _, name := range d.Components.SecuritySchemes.Keys() {
		raw, _ := d.Components.SecuritySchemes.Get(name)
		scheme := deref(d, raw)
		if scheme == nil {
			continue
		}

		switch strings.ToLower(scheme.Type) {
		case "http":
			if strings.EqualFold(scheme.Scheme, "bearer") {
				return bearerAuth()
			}
		case "apikey":
			loc := connector.AuthLocation(strings.ToLower(scheme.In))
			if loc == "" {
				loc = connector.AuthHeader
			}
			if loc != connector.AuthHeader && loc != connector.AuthQuery && loc != connector.AuthBody {
				continue
			}
			key := scheme.Name
			if key == "" {
				key = "api-key"
			}
			return connector.AuthSpec{Location: loc, KeyName: key, ValueTemplate: connector.CredentialPlaceholder}
		}
	}
	return bearerAuth()
}

// ProviderName derives a provider id from an API title.
func ProviderName(title string) string {
	lower := strings.ToLower(title)
	for _, known := range []string{"openai", "anthropic", "cohere"} {
		if strings.Contains(lower, known) {
			return known
		}
	}
	if fields := strings.Fields(lower); len(fields) > 0 {
		return fields[0]
	}
	return "unknown"
}

// BaseURL returns the first server URL without a trailing slash.
func (d *Document) BaseURL() string {
	if len(d.Servers) == 0 {
		return ""
	}
	return strings.TrimRight(d.Servers[0].URL, "/")
}
