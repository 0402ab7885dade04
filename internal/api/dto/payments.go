package dto

import (
	"github.com/hugh/canicloud/internal/api/validation"
	"github.com/hugh/canicloud/internal/database/models"
)

type CreateOrderRequest struct {
	Amount          int64                  `json:"amount"`
	DatabaseVersion models.DatabaseVersion `json:"databaseVersion"`
	ProjectID       string                 `json:"projectId"`
	Provider        string                 `json:"provider,omitempty"`
}

func (r CreateOrderRequest) Validate() map[string]string {
	errors := make(map[string]string)
	if r.Amount <= 0 {
		errors["amount"] = "Amount must be positive"
	}
	validateVersion(errors, r.DatabaseVersion, true)
	if !validation.IsValidUUID(r.ProjectID) {
		errors["projectId"] = "Invalid project id"
	}
	if r.Provider != "" && r.Provider != "paypal" && r.Provider != "stripe" {
		errors["provider"] = "Provider must be paypal or stripe"
	}
	return errors
}

// CaptureParam is the decrypted /{data} segment of the capture route.
type CaptureParam struct {
	OrderID string `json:"orderId"`
}

func (p CaptureParam) Validate() map[string]string {
	errors := make(map[string]string)
	if p.OrderID == "" {
		errors["orderId"] = "Order id is required"
	}
	return errors
}

type PaymentDTO struct {
	OrderID         string `json:"orderId"`
	Provider        string `json:"provider"`
	ProjectID       string `json:"projectId"`
	DatabaseVersion string `json:"databaseVersion"`
	Amount          int64  `json:"amount"`
	Status          string `json:"status"`
}

func NewPaymentDTO(p *models.Payment) PaymentDTO {
	return PaymentDTO{
		OrderID:         p.OrderID,
		Provider:        p.Provider,
		ProjectID:       p.ProjectID.String(),
		DatabaseVersion: string(p.DatabaseVersion),
		Amount:          p.Amount,
		Status:          string(p.Status),
	}
}
