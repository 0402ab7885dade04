package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/canicloud/internal/store"
)

const (
	// StuckPaymentAge is how long a capture may stay in processing before
	// the sweep hands the order back for another attempt.
	StuckPaymentAge = 15 * time.Minute
	StaleOTPAge     = 24 * time.Hour
)

type OTPMailer interface {
	SendOTP(ctx context.Context, to, code, otpType string) error
}

type Handler struct {
	store  *store.Store
	mailer OTPMailer
	logger *slog.Logger
	now    func() time.Time
}

func NewHandler(st *store.Store, mailer OTPMailer, logger *slog.Logger) *Handler {
	return &Handler{
		store:  st,
		mailer: mailer,
		logger: logger,
		now:    time.Now,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSendOTPEmail, h.HandleSendOTPEmail)
	mux.HandleFunc(TypeSweep, h.HandleSweep)
}

func (h *Handler) HandleSendOTPEmail(ctx context.Context, t *asynq.Task) error {
	var payload OTPEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Email == "" || payload.Code == "" {
		return fmt.Errorf("incomplete otp payload: %w", asynq.SkipRetry)
	}

	if err := h.mailer.SendOTP(ctx, payload.Email, payload.Code, payload.Type); err != nil {
		h.logger.Error("otp email failed", "email", payload.Email, "error", err)
		return err
	}
	return nil
}

// HandleSweep returns stuck captures to initiated and deletes old OTPs.
func (h *Handler) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	now := h.now()

	reset, err := h.store.Payments().ResetStuck(ctx, now.Add(-StuckPaymentAge))
	if err != nil {
		return fmt.Errorf("reset stuck payments: %w", err)
	}

	deleted, err := h.store.OTPs().DeleteStale(ctx, now.Add(-StaleOTPAge))
	if err != nil {
		return fmt.Errorf("delete stale otps: %w", err)
	}

	h.logger.Info("sweep completed", "payments_reset", reset, "otps_deleted", deleted)
	return nil
}
