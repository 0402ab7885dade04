package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const maxTokenBodyPeek = 1 << 20

// ExtractToken finds a bearer token on the request. Sources are checked in
// order: Authorization header, "token" cookie, x-access-token header,
// token header, then a "token" field in a JSON body. The body is left
// readable for the next handler.
func ExtractToken(r *http.Request) string {
	if h := strings.TrimSpace(r.Header.Get("Authorization")); h != "" {
		if after, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(after)
		}
		return h
	}

	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	if t := r.Header.Get("X-Access-Token"); t != "" {
		return t
	}
	if t := r.Header.Get("Token"); t != "" {
		return t
	}

	return tokenFromBody(r)
}

func tokenFromBody(r *http.Request) string {
	if r.Body == nil || !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxTokenBodyPeek))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil || len(data) == 0 {
		return ""
	}

	var body struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Token
}
