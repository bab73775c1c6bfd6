package payment_test

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/noah-isme/portfolio-api/internal/payment"
)

const testSecret = "test_secret"

type fakeProvider struct {
	mu         sync.Mutex
	orders     []payment.OrderParams
	fetched    []string
	orderErr   error
	paymentErr error
	status     string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) CreateOrder(_ context.Context, params payment.OrderParams) (payment.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, params)
	if f.orderErr != nil {
		return payment.Order{}, f.orderErr
	}
	return payment.Order{ID: "order_123", Amount: params.Amount, Currency: params.Currency, Receipt: params.Receipt, Status: "created"}, nil
}

func (f *fakeProvider) FetchPayment(_ context.Context, paymentID string) (payment.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, paymentID)
	if f.paymentErr != nil {
		return payment.Payment{}, f.paymentErr
	}
	raw, _ := json.Marshal(map[string]any{
		"id":       paymentID,
		"entity":   "payment",
		"order_id": "order_123",
		"status":   f.status,
		"amount":   50000,
		"currency": "INR",
	})
	return payment.Payment{ID: paymentID, OrderID: "order_123", Status: f.status, Amount: 50000, Currency: "INR", Raw: raw}, nil
}

func (f *fakeProvider) orderCalls() []payment.OrderParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payment.OrderParams(nil), f.orders...)
}

func (f *fakeProvider) fetchCalls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.fetched...)
}
