package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hugh/canicloud/internal/payments"
)

var ErrFakeCapture = errors.New("fake capture failure")

// FakeProvider is an in-memory payment provider. Orders are named
// order-1, order-2 and so on.
type FakeProvider struct {
	FailCapture bool

	mu       sync.Mutex
	next     int
	captures map[string]int
}

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{captures: make(map[string]int)}
}

func (f *FakeProvider) Name() string {
	return "fake"
}

func (f *FakeProvider) CreateOrder(_ context.Context, amount int64, currency string) (*payments.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := fmt.Sprintf("order-%d", f.next)
	raw := fmt.Sprintf(`{"id":%q,"status":"CREATED","amount":%d,"currency":%q}`, id, amount, currency)
	return &payments.Order{ID: id, Status: "CREATED", Raw: []byte(raw)}, nil
}

func (f *FakeProvider) CaptureOrder(_ context.Context, orderID string) (*payments.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailCapture {
		return nil, ErrFakeCapture
	}
	f.captures[orderID]++
	raw := fmt.Sprintf(`{"id":%q,"status":"COMPLETED"}`, orderID)
	return &payments.Order{ID: orderID, Status: "COMPLETED", Raw: []byte(raw)}, nil
}

// Captures reports how many times orderID reached the provider.
func (f *FakeProvider) Captures(orderID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.captures[orderID]
}
