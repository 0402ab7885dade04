// Package respond writes the JSON envelope every endpoint answers with:
//
//	{"status": "success"|"fail", "code": 200, "action": "...", "message": "...", "data": ...}
package respond

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

type Body struct {
	Status  string      `json:"status"`
	Code    int         `json:"code"`
	Action  string      `json:"action"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
}

// Responder builds envelopes. In dev mode unexpected errors are echoed to the
// client under data.devError.
type Responder struct {
	dev    bool
	logger *slog.Logger
}

func New(dev bool, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Responder{dev: dev, logger: logger}
}

func (rs *Responder) Success(w http.ResponseWriter, code int, action, message string, data interface{}) {
	Write(w, Body{Status: StatusSuccess, Code: code, Action: action, Message: message, Data: data})
}

func (rs *Responder) Fail(w http.ResponseWriter, code int, action, message string) {
	Write(w, Body{Status: StatusFail, Code: code, Action: action, Message: message})
}

// Invalid reports field validation errors under data.errors.
func (rs *Responder) Invalid(w http.ResponseWriter, action string, details map[string]string) {
	Write(w, Body{
		Status:  StatusFail,
		Code:    http.StatusBadRequest,
		Action:  action,
		Message: "validation failed",
		Data:    map[string]interface{}{"errors": details},
	})
}

// Error logs err and answers with a generic message.
func (rs *Responder) Error(w http.ResponseWriter, code int, action, message string, err error) {
	body := Body{Status: StatusFail, Code: code, Action: action, Message: message}
	if err != nil {
		rs.logger.Error(message, "action", action, "error", err)
		if rs.dev {
			body.Data = map[string]string{"devError": err.Error()}
		}
	}
	Write(w, body)
}

func Write(w http.ResponseWriter, body Body) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(body.Code)
	_ = json.NewEncoder(w).Encode(body)
}
