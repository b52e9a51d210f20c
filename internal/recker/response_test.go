package recker

import (
	"io"
	"strings"
	"testing"

	"github.com/forattini-dev/recker/internal/reckerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseBodyConsumedOnce(t *testing.T) {
	r := NewResponse(200, "OK", Headers{}, nil, io.NopCloser(strings.NewReader("hello")))
	body, err := r.Body()
	require.NoError(t, err)
	data, _ := io.ReadAll(body)
	assert.Equal(t, "hello", string(data))

	_, err = r.Body()
	assert.ErrorIs(t, err, reckerr.ErrBodyAlreadyConsumed)
}

func TestResponseCloneProducesIndependentStreams(t *testing.T) {
	r := NewResponse(200, "OK", Headers{}, nil, io.NopCloser(strings.NewReader("hello")))
	twin, err := r.Clone()
	require.NoError(t, err)

	b1, err := r.Body()
	require.NoError(t, err)
	b2, err := twin.Body()
	require.NoError(t, err)

	d1, _ := io.ReadAll(b1)
	d2, _ := io.ReadAll(b2)
	assert.Equal(t, "hello", string(d1))
	assert.Equal(t, "hello", string(d2))
}
