package recker

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Fingerprint canonicalizes a request for dedup/cache keying. Streams are
// not fingerprintable: Fingerprint returns ok=false for a
// BodyStream body without a digestible byte source, and dedup/cache
// middlewares must skip such requests.
func Fingerprint(r *Request) (string, bool) {
	digest, ok := bodyDigest(r.Body)
	if !ok {
		return "", false
	}

	var b strings.Builder
	b.WriteString(string(r.Method))
	b.WriteByte('\n')
	b.WriteString(canonicalURL(r))
	b.WriteByte('\n')
	b.WriteString(r.Headers.Get("Content-Type"))
	b.WriteByte('\n')
	b.WriteString(digest)

	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:]), true
}

func canonicalURL(r *Request) string {
	if r.URL == nil {
		return ""
	}
	u := *r.URL
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var qb strings.Builder
	for i, k := range keys {
		vals := q[k]
		sort.Strings(vals)
		for j, v := range vals {
			if i+j > 0 {
				qb.WriteByte('&')
			}
			qb.WriteString(k)
			qb.WriteByte('=')
			qb.WriteString(v)
		}
	}
	u.RawQuery = qb.String()
	u.Fragment = ""
	return u.String()
}

func bodyDigest(b Body) (string, bool) {
	switch b.Kind {
	case BodyAbsent:
		return "absent", true
	case BodyBytes:
		sum := sha256.Sum256(b.Bytes)
		return hex.EncodeToString(sum[:]), true
	case BodyText:
		sum := sha256.Sum256([]byte(b.Text))
		return hex.EncodeToString(sum[:]), true
	case BodyForm:
		sum := sha256.Sum256([]byte(b.Form.Encode()))
		return hex.EncodeToString(sum[:]), true
	case BodyJSON:
		data, err := marshalJSON(b.JSON)
		if err != nil {
			return "", false
		}
		sum := sha256.Sum256(data)
		return hex.EncodeToString(sum[:]), true
	default:
		// BodyMultipart and BodyStream are not fingerprintable: multipart
		// boundaries are random per-encode and streams are single-pass.
		return "", false
	}
}
