package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names
const (
	TypeSendOTPEmail = "email:otp"
	TypeSweep        = "maintenance:sweep"
)

// Queue names, matching the weights in pkg/queue.
const (
	QueueCritical = "critical"
	QueueLow      = "low"
)

// OTPEmailPayload carries a freshly issued code to the mail worker.
type OTPEmailPayload struct {
	Email string `json:"email"`
	Code  string `json:"code"`
	Type  string `json:"type"`
}

func NewOTPEmailTask(payload OTPEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendOTPEmail, data, asynq.Queue(QueueCritical), asynq.MaxRetry(3)), nil
}

// SweepPayload is empty; the sweep always covers every record.
type SweepPayload struct{}

func NewSweepTask() *asynq.Task {
	return asynq.NewTask(TypeSweep, nil, asynq.Queue(QueueLow), asynq.MaxRetry(1))
}
