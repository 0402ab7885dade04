package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
)

// Enqueuer is the part of *asynq.Client the notifier needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier hands OTP delivery to the worker. With no queue it only logs
// that a code was issued.
type Notifier struct {
	queue  Enqueuer
	logger *slog.Logger
}

func NewNotifier(queue Enqueuer, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{queue: queue, logger: logger}
}

func (n *Notifier) SendOTP(ctx context.Context, email, code, otpType string) error {
	if n.queue == nil {
		n.logger.Info("otp issued, no mail queue configured", "email", email, "type", otpType)
		return nil
	}

	task, err := NewOTPEmailTask(OTPEmailPayload{Email: email, Code: code, Type: otpType})
	if err != nil {
		return err
	}
	info, err := n.queue.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue otp email: %w", err)
	}
	n.logger.Debug("otp email queued", "task_id", info.ID, "type", otpType)
	return nil
}
