package payment

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"

	"github.com/noah-isme/portfolio-api/internal/obs"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// OrderRequest is the browser's request to start a donation.
// Amount is passed to the provider unchanged; its unit is whatever the
// provider expects (paise for INR on Razorpay). The Razorpay adapter writes it
// in plain decimal, never exponent form.
type OrderRequest struct {
	Amount   float64 `validate:"gt=0"`
	Currency string  `validate:"omitempty,iso4217"`
}

// VerifyRequest is the checkout callback payload relayed by the browser.
// Every field is attacker controlled.
type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" validate:"required"`
	PaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature string `json:"razorpay_signature" validate:"required"`
}

// Service creates provider orders and verifies completed payments. It is
// stateless; every call recomputes its answer from the inputs and the provider.
type Service struct {
	Provider        Provider
	Secret          string
	DefaultCurrency string
	Now             func() time.Time
}

// CreateOrder validates req and opens an order with the provider. Each
// successful call creates a new provider order.
func (s *Service) CreateOrder(ctx context.Context, req OrderRequest) (Order, error) {
	if s == nil || s.Provider == nil {
		return Order{}, ErrNotConfigured
	}
	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) {
		return Order{}, ErrInvalidAmount
	}
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = s.defaultCurrency()
	}
	if err := validate.StructPartial(req, "Amount"); err != nil {
		return Order{}, ErrInvalidAmount
	}
	if err := validate.StructPartial(req, "Currency"); err != nil {
		return Order{}, ErrInvalidCurrency
	}

	order, err := s.Provider.CreateOrder(ctx, OrderParams{
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  s.receipt(),
	})
	if err != nil {
		obs.IncPaymentOrder(s.Provider.Name(), "error")
		return Order{}, fmt.Errorf("create order: %w", err)
	}
	obs.IncPaymentOrder(s.Provider.Name(), "created")
	return order, nil
}

// Verify authenticates the callback signature and then confirms with the
// provider that the payment was captured. A genuine but uncaptured payment is
// returned together with ErrNotCaptured.
func (s *Service) Verify(ctx context.Context, req VerifyRequest) (Payment, error) {
	if s == nil || s.Provider == nil || s.Secret == "" {
		return Payment{}, ErrNotConfigured
	}
	provider := s.Provider.Name()
	if err := validate.Struct(req); err != nil {
		obs.IncPaymentVerify(provider, "invalid_signature")
		return Payment{}, ErrInvalidSignature
	}
	if !VerifySignature(s.Secret, req.OrderID, req.PaymentID, req.Signature) {
		obs.IncPaymentVerify(provider, "invalid_signature")
		return Payment{}, ErrInvalidSignature
	}

	p, err := s.Provider.FetchPayment(ctx, req.PaymentID)
	if err != nil {
		obs.IncPaymentVerify(provider, "error")
		return Payment{}, fmt.Errorf("fetch payment %s: %w", req.PaymentID, err)
	}
	if p.Status != StatusCaptured {
		obs.IncPaymentVerify(provider, "not_captured")
		return p, ErrNotCaptured
	}
	obs.IncPaymentVerify(provider, "captured")
	return p, nil
}

// DefaultCurrencyCode reports the currency used when a request omits one.
func (s *Service) DefaultCurrencyCode() string {
	return s.defaultCurrency()
}

func (s *Service) defaultCurrency() string {
	if s == nil || strings.TrimSpace(s.DefaultCurrency) == "" {
		return "INR"
	}
	return strings.ToUpper(strings.TrimSpace(s.DefaultCurrency))
}

// receipt derives an informational receipt from the clock. It is not unique
// under concurrency and is never used for deduplication.
func (s *Service) receipt() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return "receipt_" + strconv.FormatInt(now().UnixMilli(), 10)
}
