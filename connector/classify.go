package connector

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"

	"github.com/BaSui01/uniconnect/types"
)

// ClassifyStatus maps an HTTP status code onto the error taxonomy.
func ClassifyStatus(status int) types.ErrorKind {
	switch {
	case status < http.StatusBadRequest:
		return types.KindSuccess
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return types.KindAuth
	case status == http.StatusTooManyRequests:
		return types.KindRateLimit
	case status == http.StatusBadRequest:
		return types.KindBadRequest
	case status >= http.StatusInternalServerError:
		return types.KindServer
	default:
		return types.KindUnknown
	}
}

// ClassifyError maps a transport failure onto the error taxonomy.
func ClassifyError(err error) types.ErrorKind {
	if err == nil {
		return types.KindSuccess
	}

	var typed *types.Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return types.KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return types.KindUnknown
	}

	var urlErr *url.Error
	switch {
	case errors.As(err, &urlErr), errors.As(err, &netErr):
		return types.KindNetwork
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return types.KindNetwork
	}
	return types.KindUnknown
}
