package recker

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestNewRequestDefaults(t *testing.T) {
	r := NewRequest("", mustURL(t, "https://example.com/a"))
	assert.Equal(t, MethodGet, r.Method)
	assert.True(t, r.ThrowOnHTTPError)
	assert.True(t, r.FollowRedirects)
	assert.Equal(t, 5, r.MaxRedirects)
}

func TestWithHeaderIdempotent(t *testing.T) {
	base := NewRequest(MethodGet, mustURL(t, "https://example.com"))
	once := base.WithHeader("X-Foo", "bar")
	twice := once.WithHeader("X-Foo", "bar")

	assert.Equal(t, once.Headers.Get("X-Foo"), twice.Headers.Get("X-Foo"))
	assert.Equal(t, 1, twice.Headers.Len())
	// original untouched
	assert.False(t, base.Headers.Has("X-Foo"))
}

func TestWithBodyReturnsCopy(t *testing.T) {
	base := NewRequest(MethodPost, mustURL(t, "https://example.com"))
	withBody := base.WithBody(BodyFromText("hello"))
	assert.Equal(t, BodyAbsent, base.Body.Kind)
	assert.Equal(t, BodyText, withBody.Body.Kind)
}

func TestIdempotentAndDedupableMethods(t *testing.T) {
	get := NewRequest(MethodGet, mustURL(t, "https://example.com"))
	assert.True(t, get.IsIdempotent())
	assert.True(t, get.IsDedupable())

	post := NewRequest(MethodPost, mustURL(t, "https://example.com"))
	assert.False(t, post.IsIdempotent())
	assert.False(t, post.IsDedupable())

	put := NewRequest(MethodPut, mustURL(t, "https://example.com"))
	assert.True(t, put.IsIdempotent())
	assert.False(t, put.IsDedupable())
}
