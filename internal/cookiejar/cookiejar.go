// Package cookiejar implements an RFC 6265 (plus common extensions)
// cookie jar, matching registrable domains with golang.org/x/net/publicsuffix
// and serializing all operations per-jar.
package cookiejar

import (
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// SameSite mirrors the Set-Cookie SameSite attribute.
type SameSite string

const (
	SameSiteDefault SameSite = ""
	SameSiteLax     SameSite = "Lax"
	SameSiteStrict  SameSite = "Strict"
	SameSiteNone    SameSite = "None"
)

// Cookie is one stored cookie.
type Cookie struct {
	Name        string
	Value       string
	Domain      string
	Path        string
	Expires     time.Time // zero means session cookie
	Secure      bool
	HTTPOnly    bool
	SameSite    SameSite
	Partitioned bool
	Priority    string

	HostOnly bool
}

func (c Cookie) expired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// Jar is a thread-safe, RFC 6265-ish cookie store.
type Jar struct {
	mu      sync.Mutex
	byKey   map[string]Cookie // key: domain|path|name
	ignoreInvalid bool
}

// New builds an empty Jar. ignoreInvalid silently drops cookies that fail
// domain/path validation instead of returning an error from Set.
func New(ignoreInvalid bool) *Jar {
	return &Jar{byKey: make(map[string]Cookie), ignoreInvalid: ignoreInvalid}
}

func key(domain, path, name string) string {
	return strings.ToLower(domain) + "|" + path + "|" + name
}

// SetFromHeader parses every Set-Cookie header value present on resp for
// requestURL and stores the resulting cookies.
func (j *Jar) SetFromHeader(requestURL *url.URL, setCookieValues []string) {
	for _, raw := range setCookieValues {
		c, ok := parseSetCookie(raw, requestURL)
		if !ok {
			continue
		}
		j.Set(c)
	}
}

// Set stores or updates c directly; callers restoring persisted cookies
// or constructing one by hand are responsible for setting HostOnly and
// Domain consistently (parseSetCookie does this for wire-parsed cookies).
func (j *Jar) Set(c Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	k := key(c.Domain, c.Path, c.Name)
	if c.expired(time.Now()) {
		delete(j.byKey, k)
		return
	}
	j.byKey[k] = c
}

// GetCookiesFor returns the Cookie header value applicable to u: exact or
// subdomain match, path-prefix match, Secure gating on scheme, expiry
// filtering.
func (j *Jar) GetCookiesFor(u *url.URL) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := time.Now()
	host := u.Hostname()
	path := u.Path
	if path == "" {
		path = "/"
	}
	secure := strings.EqualFold(u.Scheme, "https")

	var parts []string
	for k, c := range j.byKey {
		if c.expired(now) {
			delete(j.byKey, k)
			continue
		}
		if !domainMatches(c.Domain, c.HostOnly, host) {
			continue
		}
		if !pathMatches(c.Path, path) {
			continue
		}
		if c.Secure && !secure {
			continue
		}
		parts = append(parts, c.Name+"="+decodeValue(c.Value))
	}
	return strings.Join(parts, "; ")
}

// GetAll returns every non-expired cookie currently stored.
func (j *Jar) GetAll() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	now := time.Now()
	out := make([]Cookie, 0, len(j.byKey))
	for _, c := range j.byKey {
		if !c.expired(now) {
			out = append(out, c)
		}
	}
	return out
}

// Clear removes every stored cookie.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.byKey = make(map[string]Cookie)
}

// ClearDomain removes every cookie whose Domain matches domain.
func (j *Jar) ClearDomain(domain string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for k, c := range j.byKey {
		if strings.EqualFold(c.Domain, domain) {
			delete(j.byKey, k)
		}
	}
}

func domainMatches(cookieDomain string, hostOnly bool, host string) bool {
	if hostOnly {
		return strings.EqualFold(cookieDomain, host)
	}
	if strings.EqualFold(cookieDomain, host) {
		return true
	}
	return strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(cookieDomain))
}

func pathMatches(cookiePath, requestPath string) bool {
	if cookiePath == "" || cookiePath == "/" {
		return true
	}
	if requestPath == cookiePath {
		return true
	}
	if strings.HasPrefix(requestPath, cookiePath) {
		if strings.HasSuffix(cookiePath, "/") {
			return true
		}
		return len(requestPath) > len(cookiePath) && requestPath[len(cookiePath)] == '/'
	}
	return false
}

func decodeValue(v string) string {
	if !strings.Contains(v, "%") {
		return v
	}
	decoded, err := url.QueryUnescape(v)
	if err != nil {
		return v
	}
	return decoded
}

// defaultPathFor returns the request URI's path directory, the default
// Path for a cookie that omits one.
func defaultPathFor(u *url.URL) string {
	p := u.Path
	if p == "" {
		return "/"
	}
	if idx := strings.LastIndex(p, "/"); idx >= 0 {
		if idx == 0 {
			return "/"
		}
		return p[:idx]
	}
	return "/"
}

// parseSetCookie parses a single Set-Cookie header value issued in
// response to requestURL.
func parseSetCookie(raw string, requestURL *url.URL) (Cookie, bool) {
	parts := strings.Split(raw, ";")
	if len(parts) == 0 {
		return Cookie{}, false
	}
	nameValue := strings.SplitN(strings.TrimSpace(parts[0]), "=", 2)
	if len(nameValue) != 2 {
		return Cookie{}, false
	}

	c := Cookie{
		Name:  strings.TrimSpace(nameValue[0]),
		Value: strings.TrimSpace(nameValue[1]),
		Path:  defaultPathFor(requestURL),
	}
	if c.Name == "" {
		return Cookie{}, false
	}

	var maxAge *int
	for _, attr := range parts[1:] {
		attr = strings.TrimSpace(attr)
		if attr == "" {
			continue
		}
		kv := strings.SplitN(attr, "=", 2)
		attrName := strings.ToLower(strings.TrimSpace(kv[0]))
		var attrValue string
		if len(kv) == 2 {
			attrValue = strings.TrimSpace(kv[1])
		}
		switch attrName {
		case "domain":
			c.Domain = strings.TrimPrefix(attrValue, ".")
		case "path":
			if attrValue != "" {
				c.Path = attrValue
			}
		case "expires":
			if t, err := time.Parse(time.RFC1123, attrValue); err == nil {
				c.Expires = t
			}
		case "max-age":
			if n, err := strconv.Atoi(attrValue); err == nil {
				maxAge = &n
			}
		case "secure":
			c.Secure = true
		case "httponly":
			c.HTTPOnly = true
		case "samesite":
			c.SameSite = SameSite(attrValue)
		case "partitioned":
			c.Partitioned = true
		case "priority":
			c.Priority = attrValue
		}
	}

	// Max-Age takes precedence over Expires; non-positive means immediate
	// expiry.
	if maxAge != nil {
		if *maxAge <= 0 {
			c.Expires = time.Unix(0, 0)
		} else {
			c.Expires = time.Now().Add(time.Duration(*maxAge) * time.Second)
		}
	}

	if c.Domain == "" {
		c.Domain = requestURL.Hostname()
		c.HostOnly = true
	} else if !isRegistrableSuffix(c.Domain, requestURL.Hostname()) {
		return Cookie{}, false
	}

	return c, true
}

// isRegistrableSuffix reports whether domain is a valid cookie-domain for
// host: either an exact match or domain shares the same registrable domain
// (eTLD+1) as host, using the public suffix list so a site cannot set a
// cookie for an entire public suffix like "com" or "co.uk".
func isRegistrableSuffix(domain, host string) bool {
	if strings.EqualFold(domain, host) {
		return true
	}
	if !strings.HasSuffix(strings.ToLower(host), "."+strings.ToLower(domain)) {
		return false
	}
	hostETLDPlus1, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return false
	}
	domainETLDPlus1, err := publicsuffix.EffectiveTLDPlusOne(domain)
	if err != nil {
		return false
	}
	return strings.EqualFold(hostETLDPlus1, domainETLDPlus1)
}
