package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_ChainingAndHelpers(t *testing.T) {
	t.Parallel()

	root := errors.New("root")
	err := NewError(KindServer, "upstream failed").
		WithCause(root).
		WithHTTPStatus(502).
		WithProvider("openai")

	assert.Equal(t, KindServer, GetErrorKind(err))
	assert.True(t, IsKind(err, KindServer))
	assert.True(t, errors.Is(err, root))
	assert.Equal(t, "[server_error] upstream failed: root", err.Error())
	assert.Equal(t, 502, err.HTTPStatus)
	assert.Equal(t, "openai", err.Provider)
}

func TestGetErrorKind_Wrapped(t *testing.T) {
	t.Parallel()

	wrapped := fmt.Errorf("fetch spec: %w", NewError(KindRateLimit, "slow down"))
	assert.Equal(t, KindRateLimit, GetErrorKind(wrapped))
	assert.Equal(t, KindUnknown, GetErrorKind(errors.New("plain")))
	assert.Equal(t, KindSuccess, GetErrorKind(nil))
	assert.False(t, IsKind(nil, KindSuccess))
}

func TestParseErrorKind(t *testing.T) {
	t.Parallel()

	for _, k := range AllKinds() {
		got, err := ParseErrorKind(string(k))
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseErrorKind("RATE-LIMIT")
	require.NoError(t, err)
	assert.Equal(t, KindRateLimit, got)

	_, err = ParseErrorKind("teapot")
	assert.Error(t, err)
}

func TestAllKinds_ReturnsCopy(t *testing.T) {
	t.Parallel()

	kinds := AllKinds()
	require.Len(t, kinds, 9)
	kinds[0] = "mutated"
	assert.Equal(t, KindSuccess, AllKinds()[0])
}
