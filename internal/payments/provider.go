// Package payments creates and captures credit purchase orders with an
// external payment provider.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hugh/canicloud/pkg/config"
)

var ErrNotPaid = errors.New("payment has not been completed")

// Order is a provider order as handed back to the client.
type Order struct {
	ID     string
	Status string
	// Raw is the provider response, stored as payment metadata.
	Raw json.RawMessage
}

type Provider interface {
	Name() string
	// CreateOrder opens an order for amount whole currency units.
	CreateOrder(ctx context.Context, amount int64, currency string) (*Order, error)
	CaptureOrder(ctx context.Context, orderID string) (*Order, error)
}

// NewProviders builds every provider that has credentials configured.
func NewProviders(cfg config.PaymentsConfig) (map[string]Provider, error) {
	providers := make(map[string]Provider)

	if cfg.PaypalClientID != "" {
		p, err := NewPayPalProvider(cfg.PaypalClientID, cfg.PaypalSecret, cfg.PaypalBaseURL)
		if err != nil {
			return nil, fmt.Errorf("paypal: %w", err)
		}
		providers[p.Name()] = p
	}
	if cfg.StripeSecretKey != "" {
		p := NewStripeProvider(cfg.StripeSecretKey)
		providers[p.Name()] = p
	}

	return providers, nil
}

func rawOrder(id, status string, v interface{}) (*Order, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding provider response: %w", err)
	}
	return &Order{ID: id, Status: status, Raw: raw}, nil
}
