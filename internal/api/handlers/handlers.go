package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/hugh/canicloud/internal/api/middleware"
	"github.com/hugh/canicloud/internal/api/respond"
)

type validator interface {
	Validate() map[string]string
}

// bind decodes the request body into v and validates it. On failure it
// writes the response and returns false.
func bind(w http.ResponseWriter, r *http.Request, rs *respond.Responder, action string, v validator) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		rs.Fail(w, http.StatusBadRequest, action, "invalid request body")
		return false
	}
	if errs := v.Validate(); len(errs) > 0 {
		rs.Invalid(w, action, errs)
		return false
	}
	return true
}

// bindParam is bind for the decrypted /{data} path segment.
func bindParam(w http.ResponseWriter, r *http.Request, rs *respond.Responder, action string, v validator) bool {
	if err := middleware.DecodeParam(r.Context(), v); err != nil {
		rs.Fail(w, http.StatusUnauthorized, action, "invalid request data")
		return false
	}
	if errs := v.Validate(); len(errs) > 0 {
		rs.Invalid(w, action, errs)
		return false
	}
	return true
}
