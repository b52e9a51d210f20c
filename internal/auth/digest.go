package auth

import (
	"context"
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/forattini-dev/recker/internal/recker"
	"github.com/forattini-dev/recker/internal/utils"
)

// DigestProvider implements RFC 7616 HTTP Digest authentication. It holds
// no challenge until the first 401 arrives carrying a WWW-Authenticate
// header; HandleUnauthorized parses it and Authorize attaches the
// computed Authorization header on replay.
type DigestProvider struct {
	Username string
	Password string

	mu        sync.Mutex
	challenge *digestChallenge
	nc        uint32
}

type digestChallenge struct {
	realm     string
	nonce     string
	opaque    string
	qop       string
	algorithm string
}

// NewDigest builds a DigestProvider; it authenticates nothing until a 401
// challenge has been observed.
func NewDigest(username, password string) *DigestProvider {
	return &DigestProvider{Username: username, Password: password}
}

// Authorize implements Provider.
func (p *DigestProvider) Authorize(_ context.Context, req *recker.Request) (*recker.Request, error) {
	p.mu.Lock()
	ch := p.challenge
	p.mu.Unlock()
	if ch == nil {
		return req, nil
	}

	cnonce, err := utils.GenerateSecureToken(16)
	if err != nil {
		return nil, err
	}
	nc := atomic.AddUint32(&p.nc, 1)
	ncValue := fmt.Sprintf("%08x", nc)

	ha1 := p.ha1(ch)
	ha2 := hashHex(ch.algorithm, string(req.Method)+":"+req.URL.RequestURI())

	var response string
	if ch.qop != "" {
		response = hashHex(ch.algorithm, strings.Join([]string{ha1, ch.nonce, ncValue, cnonce, ch.qop, ha2}, ":"))
	} else {
		response = hashHex(ch.algorithm, strings.Join([]string{ha1, ch.nonce, ha2}, ":"))
	}

	var b strings.Builder
	fmt.Fprintf(&b, `Digest username="%s", realm="%s", nonce="%s", uri="%s", response="%s"`,
		p.Username, ch.realm, ch.nonce, req.URL.RequestURI(), response)
	if ch.opaque != "" {
		fmt.Fprintf(&b, `, opaque="%s"`, ch.opaque)
	}
	if ch.qop != "" {
		fmt.Fprintf(&b, `, qop=%s, nc=%s, cnonce="%s"`, ch.qop, ncValue, cnonce)
	}
	if ch.algorithm != "" {
		fmt.Fprintf(&b, `, algorithm=%s`, ch.algorithm)
	}

	return req.WithHeader("Authorization", b.String()), nil
}

// HandleUnauthorized implements Provider: parses WWW-Authenticate and
// requests one replay.
func (p *DigestProvider) HandleUnauthorized(_ context.Context, resp *recker.Response) (bool, error) {
	header := resp.Headers.Get("WWW-Authenticate")
	if header == "" || !strings.HasPrefix(strings.ToLower(header), "digest") {
		return false, nil
	}
	ch, err := parseDigestChallenge(header)
	if err != nil {
		return false, err
	}

	p.mu.Lock()
	already := p.challenge != nil && p.challenge.nonce == ch.nonce
	p.challenge = ch
	atomic.StoreUint32(&p.nc, 0)
	p.mu.Unlock()

	return !already, nil
}

func (p *DigestProvider) ha1(ch *digestChallenge) string {
	return hashHex(ch.algorithm, p.Username+":"+ch.realm+":"+p.Password)
}

func hashHex(algorithm, s string) string {
	switch strings.ToUpper(strings.TrimSuffix(algorithm, "-sess")) {
	case "SHA-256":
		sum := sha256.Sum256([]byte(s))
		return hex.EncodeToString(sum[:])
	default:
		sum := md5.Sum([]byte(s))
		return hex.EncodeToString(sum[:])
	}
}

func parseDigestChallenge(header string) (*digestChallenge, error) {
	rest := strings.TrimSpace(header)
	rest = strings.TrimPrefix(rest, "Digest ")
	rest = strings.TrimPrefix(rest, "digest ")

	ch := &digestChallenge{qop: "auth"}
	for _, part := range splitDigestParams(rest) {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}
		key := strings.TrimSpace(kv[0])
		value := strings.Trim(strings.TrimSpace(kv[1]), `"`)
		switch strings.ToLower(key) {
		case "realm":
			ch.realm = value
		case "nonce":
			ch.nonce = value
		case "opaque":
			ch.opaque = value
		case "qop":
			ch.qop = strings.Split(value, ",")[0]
		case "algorithm":
			ch.algorithm = value
		}
	}
	if ch.nonce == "" {
		return nil, errors.New("auth: digest challenge missing nonce")
	}
	return ch, nil
}

// splitDigestParams splits a comma-separated Digest parameter list,
// respecting commas inside quoted values.
func splitDigestParams(s string) []string {
	var out []string
	var cur strings.Builder
	inQuotes := false
	for _, r := range s {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			cur.WriteRune(r)
		case r == ',' && !inQuotes:
			out = append(out, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}
