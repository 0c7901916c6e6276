package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/BaSui01/uniconnect/internal/dotpath"
)

// InjectionStrategy says how the prompt enters the request body.
type InjectionStrategy int

const (
	// FieldAssignment writes the prompt at RequestSpec.PromptField.
	FieldAssignment InjectionStrategy = iota
	// TemplateSubstitution replaces every "{prompt}" inside string values.
	TemplateSubstitution
)

func (s InjectionStrategy) String() string {
	switch s {
	case TemplateSubstitution:
		return "template_substitution"
	default:
		return "field_assignment"
	}
}

func hasPromptPlaceholder(s string) bool {
	return strings.Contains(s, PromptPlaceholder)
}

// ChooseStrategy picks the injection strategy for a body template.
// Object keys are not inspected.
func ChooseStrategy(static map[string]any) InjectionStrategy {
	if dotpath.AnyString(static, hasPromptPlaceholder) {
		return TemplateSubstitution
	}
	return FieldAssignment
}

// BuiltRequest is a fully rendered request that can be sent any number of times.
type BuiltRequest struct {
	Method   string
	URL      string
	Header   http.Header
	Body     []byte
	Strategy InjectionStrategy
}

// NewHTTPRequest creates a fresh *http.Request carrying the built body.
func (b *BuiltRequest) NewHTTPRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, b.Method, b.URL, bytes.NewReader(b.Body))
	if err != nil {
		return nil, err
	}
	req.Header = b.Header.Clone()
	return req, nil
}

// BuildRequest renders the request for one prompt. The config is not modified.
func BuildRequest(cfg *Config, credential, prompt string) (*BuiltRequest, error) {
	if cfg.Request == nil {
		return nil, fmt.Errorf("build request: missing request section")
	}
	spec := cfg.Request

	target := strings.TrimRight(cfg.BaseURL, "/") + spec.Endpoint

	header := make(http.Header)
	header.Set("Content-Type", spec.ContentType)
	for k, v := range spec.ExtraHeaders {
		header.Set(k, v)
	}

	body, _ := dotpath.Clone(spec.StaticFields).(map[string]any)
	if body == nil {
		body = map[string]any{}
	}

	strategy := ChooseStrategy(spec.StaticFields)
	switch strategy {
	case TemplateSubstitution:
		dotpath.Walk(body, func(s string) string {
			return strings.ReplaceAll(s, PromptPlaceholder, prompt)
		})
	default:
		dotpath.Set(body, spec.PromptField, prompt)
	}

	if a := cfg.Auth; a != nil {
		value := a.Value(credential)
		switch a.Location {
		case AuthHeader:
			header.Set(a.KeyName, value)
		case AuthBody:
			dotpath.Set(body, a.KeyName, value)
		case AuthQuery:
			u, err := url.Parse(target)
			if err != nil {
				return nil, fmt.Errorf("build request: parse url: %w", err)
			}
			q := u.Query()
			q.Set(a.KeyName, value)
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(body); err != nil {
		return nil, fmt.Errorf("build request: encode body: %w", err)
	}

	return &BuiltRequest{
		Method:   spec.Method,
		URL:      target,
		Header:   header,
		Body:     bytes.TrimRight(buf.Bytes(), "\n"),
		Strategy: strategy,
	}, nil
}
