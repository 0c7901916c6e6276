package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BaSui01/uniconnect/internal/dotpath"
	"github.com/BaSui01/uniconnect/types"

	"gopkg.in/yaml.v3"
)

const (
	DefaultVersion        = "1.0"
	DefaultTimeoutSeconds = 30
	DefaultMethod         = "POST"
	DefaultContentType    = "application/json"
	DefaultPromptField    = "prompt"

	// CredentialPlaceholder is substituted with the credential in AuthSpec.ValueTemplate.
	CredentialPlaceholder = "{credential}"
	// PromptPlaceholder marks where the prompt goes inside RequestSpec.StaticFields.
	PromptPlaceholder = "{prompt}"
)

// AuthLocation says where the credential is placed on the outgoing request.
type AuthLocation string

const (
	AuthHeader AuthLocation = "header"
	AuthQuery  AuthLocation = "query"
	AuthBody   AuthLocation = "body"
)

// AuthSpec describes how the credential is attached.
type AuthSpec struct {
	Location      AuthLocation `json:"type" yaml:"type"`
	KeyName       string       `json:"key_name" yaml:"key_name"`
	ValueTemplate string       `json:"value_template" yaml:"value_template"`
}

// Value renders the template for a credential.
func (a *AuthSpec) Value(credential string) string {
	return strings.ReplaceAll(a.ValueTemplate, CredentialPlaceholder, credential)
}

// RequestSpec describes the outgoing request.
type RequestSpec struct {
	Endpoint     string            `json:"endpoint" yaml:"endpoint"`
	Method       string            `json:"method" yaml:"method"`
	PromptField  string            `json:"prompt_field" yaml:"prompt_field"`
	StaticFields map[string]any    `json:"static_fields" yaml:"static_fields"`
	ContentType  string            `json:"content_type" yaml:"content_type"`
	ExtraHeaders map[string]string `json:"extra_headers" yaml:"extra_headers"`
}

// ResponseSpec describes where the answer and the error detail live in the payload.
type ResponseSpec struct {
	ResponseField string `json:"response_field" yaml:"response_field"`
	ErrorField    string `json:"error_field,omitempty" yaml:"error_field,omitempty"`
}

// Config is the declarative description of one provider endpoint.
// Absent sections serialize as null.
type Config struct {
	Name           string        `json:"name" yaml:"name"`
	Provider       string        `json:"provider" yaml:"provider"`
	Version        string        `json:"version" yaml:"version"`
	BaseURL        string        `json:"base_url" yaml:"base_url"`
	Auth           *AuthSpec     `json:"auth" yaml:"auth"`
	Request        *RequestSpec  `json:"request" yaml:"request"`
	Response       *ResponseSpec `json:"response" yaml:"response"`
	Streaming      bool          `json:"streaming" yaml:"streaming"`
	TimeoutSeconds int           `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ApplyDefaults fills zero-valued fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Version == "" {
		c.Version = DefaultVersion
	}
	if c.TimeoutSeconds <= 0 {
		c.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if r := c.Request; r != nil {
		if r.Method == "" {
			r.Method = DefaultMethod
		}
		if upper := strings.ToUpper(r.Method); upper != r.Method {
			r.Method = upper
		}
		if r.PromptField == "" {
			r.PromptField = DefaultPromptField
		}
		if r.ContentType == "" {
			r.ContentType = DefaultContentType
		}
		if r.StaticFields == nil {
			r.StaticFields = map[string]any{}
		}
		if r.ExtraHeaders == nil {
			r.ExtraHeaders = map[string]string{}
		}
	}
	if a := c.Auth; a != nil {
		if a.Location == "" {
			a.Location = AuthHeader
		}
		if a.ValueTemplate == "" {
			a.ValueTemplate = CredentialPlaceholder
		}
	}
}

// Clone returns a deep copy that shares no sections, maps or
// static-field values with c.
func (c *Config) Clone() *Config {
	out := *c
	if c.Auth != nil {
		a := *c.Auth
		out.Auth = &a
	}
	if c.Request != nil {
		r := *c.Request
		if r.StaticFields != nil {
			r.StaticFields, _ = dotpath.Clone(r.StaticFields).(map[string]any)
		}
		if r.ExtraHeaders != nil {
			headers := make(map[string]string, len(r.ExtraHeaders))
			for k, v := range r.ExtraHeaders {
				headers[k] = v
			}
			r.ExtraHeaders = headers
		}
		out.Request = &r
	}
	if c.Response != nil {
		resp := *c.Response
		out.Response = &resp
	}
	return &out
}

// Validate reports every problem that would make a call impossible.
// The returned error wraps types.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.BaseURL) == "" {
		errs = append(errs, "base_url is required")
	}
	if c.Request == nil {
		errs = append(errs, "request section is required")
	} else {
		switch c.Request.Method {
		case "POST", "GET":
		default:
			errs = append(errs, fmt.Sprintf("unsupported method %q", c.Request.Method))
		}
	}
	if c.Response == nil {
		errs = append(errs, "response section is required")
	} else if c.Response.ResponseField == "" {
		errs = append(errs, "response.response_field is required")
	}
	if a := c.Auth; a != nil {
		switch a.Location {
		case AuthHeader, AuthQuery, AuthBody:
		default:
			errs = append(errs, fmt.Sprintf("unsupported auth type %q", a.Location))
		}
		if a.KeyName == "" {
			errs = append(errs, "auth.key_name is required")
		}
		if !strings.Contains(a.ValueTemplate, CredentialPlaceholder) {
			errs = append(errs, "auth.value_template must contain "+CredentialPlaceholder)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", types.ErrInvalidConfig, strings.Join(errs, "; "))
	}
	return nil
}

// ParseConfig decodes a JSON config and applies defaults. It does not validate.
// Numbers inside static_fields are kept as json.Number.
func ParseConfig(data []byte) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var c Config
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", types.ErrInvalidConfig, err)
	}
	c.ApplyDefaults()
	return &c, nil
}

// ParseConfigYAML decodes a YAML config and applies defaults. It does not validate.
func ParseConfigYAML(data []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", types.ErrInvalidConfig, err)
	}
	c.ApplyDefaults()
	return &c, nil
}

// LoadConfig reads and validates a config file.
// Files ending in .yaml or .yml are decoded as YAML, everything else as JSON.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c *Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		c, err = ParseConfigYAML(data)
	default:
		c, err = ParseConfig(data)
	}
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return c, nil
}

// Marshal encodes the config as indented JSON.
func (c *Config) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the config as indented JSON.
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
