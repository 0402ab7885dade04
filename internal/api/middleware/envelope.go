package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/pkg/crypto"
)

const (
	maxEnvelopeBody = 1 << 20

	paramKey contextKey = "param"
)

var ErrNoParam = errors.New("no decrypted path parameter")

type envelopeBody struct {
	Data *string `json:"data"`
}

// DecryptBody replaces a {"data": "<ciphertext>"} body with the decrypted
// JSON it carries. In lenient mode a body without a data string is passed
// through as plain JSON.
func DecryptBody(env *crypto.Envelope, lenient bool, rs *respond.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBody))
			r.Body.Close()
			if err != nil {
				rs.Fail(w, http.StatusBadRequest, "envelope", "could not read request body")
				return
			}

			var body envelopeBody
			_ = json.Unmarshal(raw, &body)

			if body.Data == nil {
				if lenient && json.Valid(raw) {
					setBody(r, raw)
					next.ServeHTTP(w, r)
					return
				}
				rs.Fail(w, http.StatusUnauthorized, "envelope", "invalid request data")
				return
			}

			plain, err := env.Decrypt(*body.Data)
			if err != nil || !json.Valid([]byte(plain)) {
				rs.Fail(w, http.StatusUnauthorized, "envelope", "invalid request data")
				return
			}

			setBody(r, []byte(plain))
			next.ServeHTTP(w, r)
		})
	}
}

func setBody(r *http.Request, data []byte) {
	r.Body = io.NopCloser(bytes.NewReader(data))
	r.ContentLength = int64(len(data))
	r.Header.Set("Content-Type", "application/json")
}

// DecryptParam decrypts the named URL parameter into a JSON document that
// handlers read with DecodeParam.
func DecryptParam(env *crypto.Envelope, name string, rs *respond.Responder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			plain, err := env.Decrypt(chi.URLParam(r, name))
			if err != nil || !json.Valid([]byte(plain)) {
				rs.Fail(w, http.StatusUnauthorized, "envelope", "invalid request data")
				return
			}

			ctx := context.WithValue(r.Context(), paramKey, json.RawMessage(plain))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func DecodeParam(ctx context.Context, v interface{}) error {
	raw, ok := ctx.Value(paramKey).(json.RawMessage)
	if !ok {
		return ErrNoParam
	}
	return json.Unmarshal(raw, v)
}
