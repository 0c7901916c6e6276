package connector

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/BaSui01/uniconnect/internal/dotpath"
	"github.com/BaSui01/uniconnect/types"
)

// Response is the uniform result of one Send.
// Success is true exactly when ErrorKind is types.KindSuccess and Error is empty.
type Response struct {
	Success     bool            `json:"success"`
	Content     string          `json:"content,omitempty"`
	RawResponse any             `json:"raw_response,omitempty"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   types.ErrorKind `json:"error_type"`
	StatusCode  int             `json:"status_code,omitempty"`
	LatencyMS   int64           `json:"latency_ms"`
	Retries     int             `json:"retries"`
}

// Err returns the failure as a *types.Error, or nil on success.
func (r *Response) Err() error {
	if r.Success {
		return nil
	}
	return types.NewError(r.ErrorKind, r.Error).WithHTTPStatus(r.StatusCode)
}

// ExtractContent reads field from a decoded payload and coerces it to text.
// A missing field or an explicit null yields a types.KindParse error.
func ExtractContent(payload any, field string) (string, error) {
	v, ok := dotpath.Get(payload, field)
	if !ok {
		return "", types.NewError(types.KindParse, fmt.Sprintf("response field %q not found", field))
	}
	if v == nil {
		return "", types.NewError(types.KindParse, fmt.Sprintf("response field %q is null", field))
	}
	return Coerce(v), nil
}

// Coerce renders a decoded JSON value as text. Strings are returned as-is,
// numbers keep their literal form, and everything else is compact JSON.
func Coerce(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return "null"
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}

// decodePayload decodes a response body, keeping numbers as json.Number.
func decodePayload(body []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}
