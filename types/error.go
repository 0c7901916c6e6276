package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies the outcome of a single provider call.
type ErrorKind string

const (
	KindSuccess    ErrorKind = "success"
	KindAuth       ErrorKind = "auth_error"
	KindRateLimit  ErrorKind = "rate_limit"
	KindBadRequest ErrorKind = "bad_request"
	KindServer     ErrorKind = "server_error"
	KindTimeout    ErrorKind = "timeout"
	KindNetwork    ErrorKind = "network_error"
	KindParse      ErrorKind = "parse_error"
	KindUnknown    ErrorKind = "unknown"
)

var allKinds = []ErrorKind{
	KindSuccess, KindAuth, KindRateLimit, KindBadRequest, KindServer,
	KindTimeout, KindNetwork, KindParse, KindUnknown,
}

// AllKinds returns every kind in the taxonomy.
func AllKinds() []ErrorKind {
	out := make([]ErrorKind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseErrorKind maps a kind name (case-insensitive, "-" or "_") back to its ErrorKind.
func ParseErrorKind(s string) (ErrorKind, error) {
	norm := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			c += 'a' - 'A'
		case c == '-':
			c = '_'
		}
		norm = append(norm, c)
	}
	for _, k := range allKinds {
		if string(k) == string(norm) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown error kind %q", s)
}

// Pre-call failures. These never enter the retry taxonomy.
var (
	ErrInvalidConfig     = errors.New("invalid connector config")
	ErrMissingCredential = errors.New("missing credential")
)

// Error represents a classified call failure.
type Error struct {
	Kind       ErrorKind `json:"kind"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	Provider   string    `json:"provider,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given kind and message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithProvider sets the provider name.
func (e *Error) WithProvider(provider string) *Error {
	e.Provider = provider
	return e
}

// GetErrorKind extracts the kind from an error chain.
// nil yields KindSuccess; errors that are not *Error yield KindUnknown.
func GetErrorKind(err error) ErrorKind {
	if err == nil {
		return KindSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && GetErrorKind(err) == kind
}
