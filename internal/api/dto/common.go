package dto

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/api/validation"
)

// IDParam is the decrypted /{data} path segment of project routes.
type IDParam struct {
	ID string `json:"id"`
}

func (p IDParam) Validate() map[string]string {
	errors := make(map[string]string)
	if !validation.IsValidUUID(p.ID) {
		errors["id"] = "Invalid id"
	}
	return errors
}

// UUID must only be called after Validate succeeded.
func (p IDParam) UUID() uuid.UUID {
	return uuid.MustParse(p.ID)
}

// CryptoRequest is the body of the encrypt and decrypt utilities. Data
// may be a string or any JSON value.
type CryptoRequest struct {
	Data json.RawMessage `json:"data"`
}

func (r CryptoRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if len(r.Data) == 0 || string(r.Data) == "null" {
		errors["data"] = "Data is required"
	}
	return errors
}

// Text returns Data unquoted when it is a JSON string and verbatim
// otherwise.
func (r CryptoRequest) Text() string {
	var s string
	if err := json.Unmarshal(r.Data, &s); err == nil {
		return s
	}
	return string(r.Data)
}

type CryptoResponse struct {
	Data string `json:"data"`
}
