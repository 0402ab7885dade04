package payments

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/plutov/paypal/v4"
)

type PayPalProvider struct {
	client *paypal.Client
	mu     sync.Mutex
}

func NewPayPalProvider(clientID, secret, baseURL string) (*PayPalProvider, error) {
	if baseURL == "" {
		baseURL = paypal.APIBaseSandBox
	}
	c, err := paypal.NewClient(clientID, secret, baseURL)
	if err != nil {
		return nil, err
	}
	return &PayPalProvider{client: c}, nil
}

func (p *PayPalProvider) Name() string {
	return "paypal"
}

// authorize fetches the first access token. The client refreshes it on its
// own afterwards.
func (p *PayPalProvider) authorize(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client.Token != nil {
		return nil
	}
	if _, err := p.client.GetAccessToken(ctx); err != nil {
		return fmt.Errorf("paypal access token: %w", err)
	}
	return nil
}

func (p *PayPalProvider) CreateOrder(ctx context.Context, amount int64, currency string) (*Order, error) {
	if err := p.authorize(ctx); err != nil {
		return nil, err
	}

	order, err := p.client.CreateOrder(ctx, paypal.OrderIntentCapture, []paypal.PurchaseUnitRequest{
		{
			Amount: &paypal.PurchaseUnitAmount{
				Currency: currency,
				Value:    strconv.FormatInt(amount, 10) + ".00",
			},
		},
	}, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("paypal create order: %w", err)
	}
	return rawOrder(order.ID, order.Status, order)
}

func (p *PayPalProvider) CaptureOrder(ctx context.Context, orderID string) (*Order, error) {
	if err := p.authorize(ctx); err != nil {
		return nil, err
	}

	resp, err := p.client.CaptureOrder(ctx, orderID, paypal.CaptureOrderRequest{})
	if err != nil {
		return nil, fmt.Errorf("paypal capture order: %w", err)
	}
	if resp.Status != "COMPLETED" {
		return nil, fmt.Errorf("%w: paypal status %s", ErrNotPaid, resp.Status)
	}
	return rawOrder(resp.ID, resp.Status, resp)
}
