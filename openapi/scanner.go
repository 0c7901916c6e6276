package openapi

import (
	"fmt"
	"sort"
	"strings"
)

type keyword struct {
	word   string
	weight float64
}

var (
	pathKeywords = []keyword{
		{"chat", 10},
		{"completions", 8},
		{"completion", 8},
		{"messages", 9},
		{"message", 7},
		{"generate", 6},
		{"inference", 5},
		{"converse", 7},
		{"ask", 4},
	}

	negativeKeywords = []keyword{
		{"list", -5},
		{"delete", -10},
		{"get", -3},
		{"models", -5},
		{"files", -10},
		{"embeddings", -8},
		{"images", -8},
		{"audio", -8},
		{"fine-tune", -10},
		{"batch", -8},
	}

	requestFieldKeywords = map[string]float64{
		"messages": 10,
		"message":  8,
		"prompt":   9,
		"content":  6,
		"input":    5,
		"text":     5,
		"query":    4,
	}
)

const (
	operationIDFactor  = 0.5
	descriptionFactor  = 0.3
	requestFieldFactor = 0.5
)

// keywordScore sums the weights of every keyword found as a substring of text.
func keywordScore(text string, kws []keyword) float64 {
	var score float64
	for _, kw := range kws {
		if strings.Contains(text, kw.word) {
			score += kw.weight
		}
	}
	return score
}

// HeaderParam is a header the operation declares as required.
type HeaderParam struct {
	Name        string
	Value       string
	Description string
}

// EndpointCandidate is a POST operation that looks like a chat endpoint.
type EndpointCandidate struct {
	Path            string
	Method          string
	OperationID     string
	Summary         string
	Description     string
	Score           float64
	RequestSchema   *Schema
	ResponseSchema  *Schema
	RequiredHeaders []HeaderParam
}

func (c EndpointCandidate) String() string {
	return fmt.Sprintf("[%.1f] %s %s", c.Score, c.Method, c.Path)
}

// FindChatEndpoints scores every POST operation and returns the ones with a
// positive score, best first. Equal scores keep document order.
func (d *Document) FindChatEndpoints() []EndpointCandidate {
	var out []EndpointCandidate
	for _, path := range d.Paths.Keys() {
		item, _ := d.Paths.Get(path)
		if item == nil || item.Post == nil {
			continue
		}
		op := item.Post

		reqSchema := d.requestSchema(op)
		score := d.scoreOperation(path, op, reqSchema)
		if score <= 0 {
			continue
		}
		out = append(out, EndpointCandidate{
			Path:            path,
			Method:          "POST",
			OperationID:     op.OperationID,
			Summary:         op.Summary,
			Description:     op.Description,
			Score:           score,
			RequestSchema:   reqSchema,
			ResponseSchema:  d.responseSchema(op),
			RequiredHeaders: d.requiredHeaders(item, op),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

func (d *Document) scoreOperation(path string, op *Operation, reqSchema *Schema) float64 {
	lowerPath := strings.ToLower(path)
	score := keywordScore(lowerPath, pathKeywords) + keywordScore(lowerPath, negativeKeywords)

	score += operationIDFactor * keywordScore(strings.ToLower(op.OperationID), pathKeywords)

	summary := strings.ToLower(op.Summary)
	description := strings.ToLower(op.Description)
	for _, kw := range pathKeywords {
		if strings.Contains(summary, kw.word) || strings.Contains(description, kw.word) {
			score += descriptionFactor * kw.weight
		}
	}

	for name := range d.properties(reqSchema) {
		if w, ok := requestFieldKeywords[strings.ToLower(name)]; ok {
			score += requestFieldFactor * w
		}
	}
	return score
}

// jsonSchema picks the schema of the preferred JSON content type.
func (d *Document) jsonSchema(content map[string]MediaType) *Schema {
	for _, ct := range []string{"application/json", "*/*"} {
		if mt, ok := content[ct]; ok && mt.Schema != nil {
			return d.ResolveSchema(mt.Schema)
		}
	}
	names := make([]string, 0, len(content))
	for ct := range content {
		if strings.Contains(ct, "json") {
			names = append(names, ct)
		}
	}
	sort.Strings(names)
	for _, ct := range names {
		if s := content[ct].Schema; s != nil {
			return d.ResolveSchema(s)
		}
	}
	return nil
}

func (d *Document) requestSchema(op *Operation) *Schema {
	rb := deref(d, op.RequestBody)
	if rb == nil {
		return nil
	}
	return d.jsonSchema(rb.Content)
}

func (d *Document) responseSchema(op *Operation) *Schema {
	resp, ok := op.Responses["200"]
	if !ok {
		resp = op.Responses["201"]
	}
	resp = deref(d, resp)
	if resp == nil {
		return nil
	}
	return d.jsonSchema(resp.Content)
}

// requiredHeaders collects required header parameters. Operation-level
// parameters override path-level ones with the same name.
func (d *Document) requiredHeaders(item *PathItem, op *Operation) []HeaderParam {
	var out []HeaderParam
	index := map[string]int{}
	add := func(params []*Parameter) {
		for _, raw := range params {
			p := deref(d, raw)
			if p == nil || p.In != "header" || !p.Required {
				continue
			}
			h := HeaderParam{Name: p.Name, Value: headerExample(d, p), Description: p.Description}
			key := strings.ToLower(p.Name)
			if i, seen := index[key]; seen {
				out[i] = h
				continue
			}
			index[key] = len(out)
			out = append(out, h)
		}
	}
	add(item.Parameters)
	add(op.Parameters)
	return out
}

func headerExample(d *Document, p *Parameter) string {
	if s := d.ResolveSchema(p.Schema); s != nil && s.Example != nil {
		return fmt.Sprint(s.Example)
	}
	if p.Example != nil {
		return fmt.Sprint(p.Example)
	}
	return ""
}
