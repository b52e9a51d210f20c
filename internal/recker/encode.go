package recker

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"mime/multipart"
)

func marshalJSON(v any) ([]byte, error) {
	return json.Marshal(v)
}

func encodeMultipart(parts []MultipartPart) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, p := range parts {
		var err error
		if p.Filename != "" {
			part, e := w.CreateFormFile(p.Name, p.Filename)
			if e != nil {
				return nil, "", e
			}
			_, err = part.Write(p.Content)
		} else {
			part, e := w.CreateFormField(p.Name)
			if e != nil {
				return nil, "", e
			}
			_, err = part.Write(p.Content)
		}
		if err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.Boundary(), nil
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", len(b))
	}
	return hex.EncodeToString(b)
}
