package auth

import (
	"context"
	"encoding/base64"

	"github.com/forattini-dev/recker/internal/recker"
)

// BasicProvider implements RFC 7617 Basic authentication.
type BasicProvider struct {
	staticProvider
	Username string
	Password string
}

// NewBasic builds a BasicProvider for username/password.
func NewBasic(username, password string) *BasicProvider {
	return &BasicProvider{Username: username, Password: password}
}

// Authorize implements Provider.
func (p *BasicProvider) Authorize(_ context.Context, req *recker.Request) (*recker.Request, error) {
	token := base64.StdEncoding.EncodeToString([]byte(p.Username + ":" + p.Password))
	return req.WithHeader("Authorization", "Basic "+token), nil
}

// BearerProvider attaches a static bearer token.
type BearerProvider struct {
	staticProvider
	Token string
}

// NewBearer builds a BearerProvider for a fixed token.
func NewBearer(token string) *BearerProvider {
	return &BearerProvider{Token: token}
}

// Authorize implements Provider.
func (p *BearerProvider) Authorize(_ context.Context, req *recker.Request) (*recker.Request, error) {
	return req.WithHeader("Authorization", "Bearer "+p.Token), nil
}

// APIKeyProvider attaches a static key under an arbitrary header or query
// parameter name.
type APIKeyProvider struct {
	staticProvider
	HeaderName string
	QueryParam string
	Value      string
}

// Authorize implements Provider.
func (p *APIKeyProvider) Authorize(_ context.Context, req *recker.Request) (*recker.Request, error) {
	out := req
	if p.HeaderName != "" {
		out = out.WithHeader(p.HeaderName, p.Value)
	}
	if p.QueryParam != "" {
		u := *out.URL
		q := u.Query()
		q.Set(p.QueryParam, p.Value)
		u.RawQuery = q.Encode()
		out = out.WithURL(&u)
	}
	return out, nil
}
