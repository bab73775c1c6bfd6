package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/portfolio-api/internal/payment"
	"github.com/noah-isme/portfolio-api/internal/resilience"
)

func newRazorpay(t *testing.T, handler http.HandlerFunc) payment.Razorpay {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return payment.Razorpay{
		KeyID:     "rzp_test_key",
		KeySecret: "rzp_test_secret",
		BaseURL:   srv.URL + "/v1/",
		HTTP: &resilience.HTTPClient{
			Client:  srv.Client(),
			Breaker: resilience.NewBreaker(10, 1, time.Second),
			Timeout: time.Second,
		},
	}
}

func TestRazorpayCreateOrderEncodesAmountInPlainDecimal(t *testing.T) {
	var gotRaw string
	rp := newRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotRaw = string(raw)
		_, _ = io.WriteString(w, `{"id":"order_big"}`)
	})

	for amount, want := range map[float64]string{
		1e21:   `"amount":1000000000000000000000,`,
		100.5:  `"amount":100.5,`,
		50000:  `"amount":50000,`,
		1.5e-7: `"amount":0.00000015,`,
	} {
		_, err := rp.CreateOrder(context.Background(), payment.OrderParams{Amount: amount, Currency: "INR"})
		require.NoError(t, err)
		require.Contains(t, gotRaw, want)
		require.NotContains(t, gotRaw, "e+")
	}
}

func TestRazorpayCreateOrder(t *testing.T) {
	var (
		gotPath string
		gotBody map[string]any
		gotUser string
		gotPass string
	)
	rp := newRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"order_EKwxwAgItmmXdp","entity":"order","amount":50000,"currency":"INR","receipt":"receipt_1","status":"created"}`)
	})

	order, err := rp.CreateOrder(context.Background(), payment.OrderParams{Amount: 50000, Currency: "INR", Receipt: "receipt_1"})
	require.NoError(t, err)
	require.Equal(t, "order_EKwxwAgItmmXdp", order.ID)
	require.Equal(t, 50000.0, order.Amount)
	require.Equal(t, "created", order.Status)

	require.Equal(t, "POST /v1/orders", gotPath)
	require.Equal(t, "rzp_test_key", gotUser)
	require.Equal(t, "rzp_test_secret", gotPass)
	require.Equal(t, map[string]any{"amount": 50000.0, "currency": "INR", "receipt": "receipt_1"}, gotBody)
}

func TestRazorpayCreateOrderProviderError(t *testing.T) {
	rp := newRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"code":"BAD_REQUEST_ERROR","description":"Order amount less than minimum amount allowed"}}`)
	})

	_, err := rp.CreateOrder(context.Background(), payment.OrderParams{Amount: 1, Currency: "INR"})
	var pe *payment.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, http.StatusBadRequest, pe.StatusCode)
	require.Equal(t, "BAD_REQUEST_ERROR", pe.Code)
	require.Contains(t, pe.Description, "minimum amount")
}

func TestRazorpayCreateOrderMissingID(t *testing.T) {
	rp := newRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"amount":100}`)
	})
	_, err := rp.CreateOrder(context.Background(), payment.OrderParams{Amount: 100, Currency: "INR"})
	require.Error(t, err)
}

func TestRazorpayFetchPaymentKeepsRawObject(t *testing.T) {
	const body = `{"id":"pay_29QQoUBi66xm2f","entity":"payment","amount":50000,"currency":"INR","status":"captured","order_id":"order_123","method":"upi","captured":true,"notes":{"purpose":"support"}}`
	var gotPath string
	rp := newRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.EscapedPath()
		_, _ = io.WriteString(w, body)
	})

	p, err := rp.FetchPayment(context.Background(), "pay_29QQoUBi66xm2f")
	require.NoError(t, err)
	require.Equal(t, "GET /v1/payments/pay_29QQoUBi66xm2f", gotPath)
	require.Equal(t, payment.StatusCaptured, p.Status)
	require.Equal(t, "order_123", p.OrderID)
	require.True(t, p.Captured)
	require.JSONEq(t, body, string(p.Raw))
}

func TestRazorpayFetchPaymentEscapesID(t *testing.T) {
	var gotPath string
	rp := newRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = io.WriteString(w, `{"id":"x","status":"created"}`)
	})
	_, err := rp.FetchPayment(context.Background(), "../orders")
	require.NoError(t, err)
	require.Equal(t, "/v1/payments/..%2Forders", gotPath)
}

func TestRazorpayUpstreamUnavailable(t *testing.T) {
	rp := newRazorpay(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err := rp.FetchPayment(context.Background(), "pay_1")
	var pe *payment.ProviderError
	require.True(t, errors.As(err, &pe))
	require.Equal(t, http.StatusServiceUnavailable, pe.StatusCode)
}
