package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/noah-isme/portfolio-api/internal/obs"
	"github.com/noah-isme/portfolio-api/internal/resilience"
)

const (
	razorpayName       = "razorpay"
	razorpayDefaultURL = "https://api.razorpay.com/v1"
	maxProviderBody    = 1 << 20
)

// Razorpay implements Provider against the Razorpay REST API using HTTP basic
// auth with the key id and secret. One instance is built at startup and shared
// by all requests; it holds no mutable state.
type Razorpay struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	HTTP      *resilience.HTTPClient
}

type razorpayOrderReq struct {
	Amount   json.Number `json:"amount"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt,omitempty"`
}

type razorpayErrorBody struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Name identifies the provider in logs and metrics.
func (Razorpay) Name() string { return razorpayName }

// CreateOrder opens an order via POST /orders.
func (rp Razorpay) CreateOrder(ctx context.Context, params OrderParams) (Order, error) {
	payload := razorpayOrderReq{
		// plain decimal; encoding/json would switch to 1e+21 for large floats
		Amount:   json.Number(strconv.FormatFloat(params.Amount, 'f', -1, 64)),
		Currency: params.Currency,
		Receipt:  params.Receipt,
	}
	var order Order
	if _, err := rp.call(ctx, "create_order", http.MethodPost, "/orders", payload, &order); err != nil {
		return Order{}, err
	}
	if strings.TrimSpace(order.ID) == "" {
		return Order{}, errors.New("razorpay: order response without id")
	}
	return order, nil
}

// FetchPayment loads a payment via GET /payments/{id}.
func (rp Razorpay) FetchPayment(ctx context.Context, paymentID string) (Payment, error) {
	var p Payment
	raw, err := rp.call(ctx, "fetch_payment", http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &p)
	if err != nil {
		return Payment{}, err
	}
	p.Raw = json.RawMessage(raw)
	return p, nil
}

func (rp Razorpay) call(ctx context.Context, op, method, path string, payload, out any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("razorpay %s: encode: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, rp.baseURL()+path, body)
	if err != nil {
		return nil, fmt.Errorf("razorpay %s: %w", op, err)
	}
	req.SetBasicAuth(rp.KeyID, rp.KeySecret)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := rp.client().Do(ctx, req)
	if err != nil {
		obs.ObserveProviderCall(razorpayName, op, "error", obs.DurationMillis(time.Since(start)))
		return nil, fmt.Errorf("razorpay %s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxProviderBody))
	if err != nil {
		obs.ObserveProviderCall(razorpayName, op, "error", obs.DurationMillis(time.Since(start)))
		return nil, fmt.Errorf("razorpay %s: read body: %w", op, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		obs.ObserveProviderCall(razorpayName, op, "rejected", obs.DurationMillis(time.Since(start)))
		return nil, fmt.Errorf("razorpay %s: %w", op, parseRazorpayError(resp.StatusCode, raw))
	}
	obs.ObserveProviderCall(razorpayName, op, "ok", obs.DurationMillis(time.Since(start)))

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, fmt.Errorf("razorpay %s: decode: %w", op, err)
		}
	}
	return raw, nil
}

func (rp Razorpay) baseURL() string {
	base := strings.TrimRight(strings.TrimSpace(rp.BaseURL), "/")
	if base == "" {
		return razorpayDefaultURL
	}
	return base
}

func (rp Razorpay) client() *resilience.HTTPClient {
	if rp.HTTP != nil {
		return rp.HTTP
	}
	return &resilience.HTTPClient{Client: http.DefaultClient, Timeout: 10 * time.Second, Target: razorpayName}
}

func parseRazorpayError(status int, raw []byte) *ProviderError {
	pe := &ProviderError{Provider: razorpayName, StatusCode: status}
	var body razorpayErrorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		pe.Code = body.Error.Code
		pe.Description = body.Error.Description
	}
	return pe
}
