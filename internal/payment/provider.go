package payment

import (
	"context"
	"encoding/json"
)

// StatusCaptured is the provider payment status meaning funds were collected.
const StatusCaptured = "captured"

// OrderParams captures what the provider needs to open an order.
type OrderParams struct {
	Amount   float64
	Currency string
	Receipt  string
}

// Order is the provider-assigned order returned to the browser before checkout.
type Order struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Receipt  string  `json:"receipt,omitempty"`
	Status   string  `json:"status,omitempty"`
}

// Payment is the provider view of a payment. Raw holds the provider object
// exactly as received so it can be echoed back to the caller.
type Payment struct {
	ID       string          `json:"id"`
	OrderID  string          `json:"order_id"`
	Status   string          `json:"status"`
	Amount   float64         `json:"amount"`
	Currency string          `json:"currency"`
	Method   string          `json:"method,omitempty"`
	Captured bool            `json:"captured"`
	Raw      json.RawMessage `json:"-"`
}

// Object returns the value to expose as the provider payment object.
func (p Payment) Object() any {
	if len(p.Raw) > 0 {
		return p.Raw
	}
	return p
}

// Provider abstracts the operations required from an upstream payment provider.
type Provider interface {
	Name() string
	CreateOrder(ctx context.Context, params OrderParams) (Order, error)
	FetchPayment(ctx context.Context, paymentID string) (Payment, error)
}
