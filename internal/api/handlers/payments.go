package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/hugh/canicloud/internal/api/dto"
	"github.com/hugh/canicloud/internal/api/middleware"
	"github.com/hugh/canicloud/internal/api/respond"
	"github.com/hugh/canicloud/internal/payments"
)

type PaymentHandler struct {
	payments *payments.Service
	rs       *respond.Responder
}

func NewPaymentHandler(paymentService *payments.Service, rs *respond.Responder) *PaymentHandler {
	return &PaymentHandler{payments: paymentService, rs: rs}
}

func (h *PaymentHandler) fail(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, payments.ErrProjectNotFound),
		errors.Is(err, payments.ErrOrderNotFound):
		h.rs.Fail(w, http.StatusNotFound, action, err.Error())
	case errors.Is(err, payments.ErrAlreadyCaptured):
		h.rs.Fail(w, http.StatusConflict, action, err.Error())
	case errors.Is(err, payments.ErrInvalidAmount),
		errors.Is(err, payments.ErrInvalidDatabaseVersion),
		errors.Is(err, payments.ErrUnknownProvider):
		h.rs.Fail(w, http.StatusBadRequest, action, err.Error())
	case errors.Is(err, payments.ErrProviderFailed):
		h.rs.Error(w, http.StatusBadGateway, action, payments.ErrProviderFailed.Error(), err)
	default:
		h.rs.Error(w, http.StatusInternalServerError, action, "internal server error", err)
	}
}

func (h *PaymentHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	const action = "createOrder"
	var req dto.CreateOrderRequest
	if !bind(w, r, h.rs, action, &req) {
		return
	}

	order, err := h.payments.CreateOrder(r.Context(), middleware.GetUserID(r.Context()), payments.CreateOrderInput{
		Amount:          req.Amount,
		DatabaseVersion: req.DatabaseVersion,
		ProjectID:       uuid.MustParse(req.ProjectID),
		Provider:        req.Provider,
	})
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusCreated, action, "order created.", order.Raw)
}

func (h *PaymentHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	const action = "captureOrder"
	var param dto.CaptureParam
	if !bindParam(w, r, h.rs, action, &param) {
		return
	}

	payment, err := h.payments.CaptureOrder(r.Context(), middleware.GetUserID(r.Context()), param.OrderID)
	if err != nil {
		h.fail(w, action, err)
		return
	}
	h.rs.Success(w, http.StatusOK, action, "order captured.", dto.NewPaymentDTO(payment))
}
