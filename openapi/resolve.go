package openapi

import (
	"net/url"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// maxRefDepth bounds $ref chains so cycles terminate.
const maxRefDepth = 16

type referable interface {
	reference() string
}

func (s *Schema) reference() string         { return s.Ref }
func (p *Parameter) reference() string      { return p.Ref }
func (r *RequestBody) reference() string    { return r.Ref }
func (r *ResponseObj) reference() string    { return r.Ref }
func (s *SecurityScheme) reference() string { return s.Ref }

func unalias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

// lookup walks a same-document JSON pointer such as "#/components/schemas/Msg".
func (d *Document) lookup(ref string) (*yaml.Node, bool) {
	if d.root == nil || !strings.HasPrefix(ref, "#/") {
		return nil, false
	}
	n := d.root
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		n = n.Content[0]
	}

	for _, raw := range strings.Split(ref[2:], "/") {
		seg := raw
		if u, err := url.PathUnescape(seg); err == nil {
			seg = u
		}
		seg = strings.ReplaceAll(strings.ReplaceAll(seg, "~1", "/"), "~0", "~")

		n = unalias(n)
		switch n.Kind {
		case yaml.MappingNode:
			var next *yaml.Node
			for i := 0; i+1 < len(n.Content); i += 2 {
				if n.Content[i].Value == seg {
					next = n.Content[i+1]
					break
				}
			}
			if next == nil {
				return nil, false
			}
			n = next
		case yaml.SequenceNode:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n.Content) {
				return nil, false
			}
			n = n.Content[i]
		default:
			return nil, false
		}
	}
	return unalias(n), true
}

// deref follows $ref until it reaches an inline object.
// It returns nil for external, dangling or cyclic references.
func deref[T any, PT interface {
	*T
	referable
}](d *Document, v PT) PT {
	for depth := 0; v != nil && v.reference() != ""; depth++ {
		if depth >= maxRefDepth {
			return nil
		}
		n, ok := d.lookup(v.reference())
		if !ok {
			return nil
		}
		next := PT(new(T))
		if err := n.Decode(next); err != nil {
			return nil
		}
		v = next
	}
	return v
}

// ResolveSchema returns the inline schema behind s.
// Unresolvable references degrade to an empty schema; nil stays nil.
func (d *Document) ResolveSchema(s *Schema) *Schema {
	if s == nil {
		return nil
	}
	if r := deref(d, s); r != nil {
		return r
	}
	return &Schema{}
}

// properties merges the properties of s and its allOf members.
func (d *Document) properties(s *Schema) map[string]*Schema {
	return d.collectProperties(s, 0)
}

func (d *Document) collectProperties(s *Schema, depth int) map[string]*Schema {
	s = d.ResolveSchema(s)
	if s == nil || depth > maxRefDepth {
		return nil
	}
	if len(s.AllOf) == 0 {
		return s.Properties
	}
	out := make(map[string]*Schema, len(s.Properties))
	for _, part := range s.AllOf {
		for k, v := range d.collectProperties(part, depth+1) {
			out[k] = v
		}
	}
	for k, v := range s.Properties {
		out[k] = v
	}
	return out
}

// required merges the required lists of s and its allOf members.
func (d *Document) required(s *Schema) []string {
	return d.collectRequired(s, 0)
}

func (d *Document) collectRequired(s *Schema, depth int) []string {
	s = d.ResolveSchema(s)
	if s == nil || depth > maxRefDepth {
		return nil
	}
	out := append([]string(nil), s.Required...)
	for _, part := range s.AllOf {
		out = append(out, d.collectRequired(part, depth+1)...)
	}
	return out
}
