package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PaymentStatus string

const (
	PaymentStatusInitiated  PaymentStatus = "initiated"
	PaymentStatusProcessing PaymentStatus = "processing"
	// PaymentStatusCaptured means the provider took the money but the
	// credits have not been granted yet.
	PaymentStatusCaptured  PaymentStatus = "captured"
	PaymentStatusCompleted PaymentStatus = "completed"
)

type Payment struct {
	Base
	Provider        string          `gorm:"not null" json:"provider"`
	OrderID         string          `gorm:"uniqueIndex;not null" json:"order_id"`
	UserID          uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	ProjectID       uuid.UUID       `gorm:"type:uuid;index;not null" json:"project_id"`
	DatabaseVersion DatabaseVersion `gorm:"not null" json:"database_version"`
	Amount          int64           `gorm:"not null" json:"amount"`
	Status          PaymentStatus   `gorm:"not null;default:'initiated';index" json:"status"`
	Metadata        datatypes.JSON  `json:"metadata,omitempty"`
}

func (Payment) TableName() string {
	return "payments"
}
