package connector

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"testing"

	"github.com/BaSui01/uniconnect/types"
	"github.com/stretchr/testify/assert"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   types.ErrorKind
	}{
		{200, types.KindSuccess},
		{201, types.KindSuccess},
		{304, types.KindSuccess},
		{400, types.KindBadRequest},
		{401, types.KindAuth},
		{403, types.KindAuth},
		{404, types.KindUnknown},
		{409, types.KindUnknown},
		{422, types.KindUnknown},
		{429, types.KindRateLimit},
		{500, types.KindServer},
		{503, types.KindServer},
		{599, types.KindServer},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyStatus(tt.status), "status %d", tt.status)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	refused := &url.Error{Op: "Post", URL: "http://x", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}

	tests := []struct {
		name string
		err  error
		want types.ErrorKind
	}{
		{"nil", nil, types.KindSuccess},
		{"deadline", context.DeadlineExceeded, types.KindTimeout},
		{"wrapped deadline", &url.Error{Op: "Post", URL: "http://x", Err: context.DeadlineExceeded}, types.KindTimeout},
		{"net timeout", &url.Error{Op: "Post", URL: "http://x", Err: timeoutErr{}}, types.KindTimeout},
		{"refused", refused, types.KindNetwork},
		{"unexpected eof", fmt.Errorf("read: %w", io.ErrUnexpectedEOF), types.KindNetwork},
		{"cancelled", &url.Error{Op: "Post", URL: "http://x", Err: context.Canceled}, types.KindUnknown},
		{"typed", types.NewError(types.KindParse, "bad"), types.KindParse},
		{"other", errors.New("weird"), types.KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyError(tt.err))
		})
	}
}
