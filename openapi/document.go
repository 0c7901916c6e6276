package openapi

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Document is the subset of an OpenAPI 3 description the scanner reads.
// It keeps the raw node tree so local $ref pointers can be resolved.
type Document struct {
	OpenAPI    string                `yaml:"openapi"`
	Info       Info                  `yaml:"info"`
	Servers    []Server              `yaml:"servers"`
	Paths      OrderedMap[*PathItem] `yaml:"paths"`
	Components Components            `yaml:"components"`

	root *yaml.Node
}

// Info contains API metadata.
type Info struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Version     string `yaml:"version"`
}

// Server represents an API server.
type Server struct {
	URL         string `yaml:"url"`
	Description string `yaml:"description"`
}

// Components holds the reusable objects the scanner needs directly.
// Schemas and parameters are reached through $ref resolution instead.
type Components struct {
	SecuritySchemes OrderedMap[*SecurityScheme] `yaml:"securitySchemes"`
}

// SecurityScheme describes one authentication mechanism.
type SecurityScheme struct {
	Ref          string `yaml:"$ref"`
	Type         string `yaml:"type"`
	Scheme       string `yaml:"scheme"`
	BearerFormat string `yaml:"bearerFormat"`
	In           string `yaml:"in"`
	Name         string `yaml:"name"`
}

// PathItem represents operations on a path.
type PathItem struct {
	Get        *Operation   `yaml:"get"`
	Post       *Operation   `yaml:"post"`
	Put        *Operation   `yaml:"put"`
	Delete     *Operation   `yaml:"delete"`
	Patch      *Operation   `yaml:"patch"`
	Parameters []*Parameter `yaml:"parameters"`
}

// Operation represents an API operation.
type Operation struct {
	OperationID string                  `yaml:"operationId"`
	Summary     string                  `yaml:"summary"`
	Description string                  `yaml:"description"`
	Parameters  []*Parameter            `yaml:"parameters"`
	RequestBody *RequestBody            `yaml:"requestBody"`
	Responses   map[string]*ResponseObj `yaml:"responses"`
	Tags        []string                `yaml:"tags"`
}

// Parameter represents an operation parameter.
type Parameter struct {
	Ref         string  `yaml:"$ref"`
	Name        string  `yaml:"name"`
	In          string  `yaml:"in"`
	Required    bool    `yaml:"required"`
	Description string  `yaml:"description"`
	Schema      *Schema `yaml:"schema"`
	Example     any     `yaml:"example"`
}

// RequestBody represents a request body.
type RequestBody struct {
	Ref      string               `yaml:"$ref"`
	Required bool                 `yaml:"required"`
	Content  map[string]MediaType `yaml:"content"`
}

// ResponseObj represents one response of an operation.
type ResponseObj struct {
	Ref         string               `yaml:"$ref"`
	Description string               `yaml:"description"`
	Content     map[string]MediaType `yaml:"content"`
}

// MediaType wraps the schema of one content type.
type MediaType struct {
	Schema *Schema `yaml:"schema"`
}

// Schema is the JSON Schema subset used for field inference.
type Schema struct {
	Ref         string             `yaml:"$ref"`
	Type        SchemaType         `yaml:"type"`
	Description string             `yaml:"description"`
	Properties  map[string]*Schema `yaml:"properties"`
	Items       *Schema            `yaml:"items"`
	Required    []string           `yaml:"required"`
	AllOf       []*Schema          `yaml:"allOf"`
	Example     any                `yaml:"example"`
	Default     any                `yaml:"default"`
}

// SchemaType accepts both `type: array` and the 3.1 form `type: [array, "null"]`.
type SchemaType []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *SchemaType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*t = SchemaType{node.Value}
		return nil
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return err
		}
		*t = names
		return nil
	default:
		return fmt.Errorf("line %d: schema type must be a string or a list", node.Line)
	}
}

// Is reports whether name is one of the declared types.
func (t SchemaType) Is(name string) bool {
	for _, v := range t {
		if v == name {
			return true
		}
	}
	return false
}

// Parse decodes a YAML or JSON OpenAPI document.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse openapi document: %w", err)
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("parse openapi document: empty input")
	}

	var doc Document
	if err := root.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode openapi document: %w", err)
	}
	if doc.Paths.Len() == 0 {
		return nil, fmt.Errorf("openapi document declares no paths")
	}
	doc.root = &root
	return &doc, nil
}

// OrderedMap is a string-keyed mapping that remembers document order.
type OrderedMap[V any] struct {
	keys   []string
	values map[string]V
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (m *OrderedMap[V]) UnmarshalYAML(node *yaml.Node) error {
	node = unalias(node)
	if node.Kind != yaml.MappingNode {
		if node.Tag == "!!null" {
			return nil
		}
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}

	m.keys = make([]string, 0, len(node.Content)/2)
	m.values = make(map[string]V, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		var v V
		if err := node.Content[i+1].Decode(&v); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, dup := m.values[key]; !dup {
			m.keys = append(m.keys, key)
		}
		m.values[key] = v
	}
	return nil
}

// Keys returns the keys in document order.
func (m *OrderedMap[V]) Keys() []string {
	return m.keys
}

// Get returns the value stored under key.
func (m *OrderedMap[V]) Get(key string) (V, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len returns the number of entries.
func (m *OrderedMap[V]) Len() int {
	return len(m.keys)
}
