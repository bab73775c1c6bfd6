package payment

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/noah-isme/portfolio-api/internal/common"
)

// Handler exposes the order creation and verification endpoints.
type Handler struct {
	Svc         *Service
	PublicKeyID string
}

type createOrderReq struct {
	Amount   any `json:"amount"`
	Currency any `json:"currency"`
}

type createOrderResp struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
}

type verifyResp struct {
	Success bool `json:"success"`
	Payment any  `json:"payment"`
}

type configResp struct {
	KeyID    string `json:"keyId"`
	Currency string `json:"currency"`
}

// CreateOrder handles POST /api/create-order.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONMessage(w, http.StatusInternalServerError, "Failed to create order")
		return
	}
	req, err := decodeOrderRequest(r)
	if err != nil {
		h.fail(w, r, err, "Failed to create order")
		return
	}
	order, err := h.Svc.CreateOrder(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Failed to create order")
		return
	}
	common.JSON(w, http.StatusOK, createOrderResp{ID: order.ID, Amount: order.Amount})
}

// VerifyPayment handles POST /api/verify-payment.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONMessage(w, http.StatusInternalServerError, "Failed to verify payment")
		return
	}
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, r, ErrInvalidSignature, "Failed to verify payment")
		return
	}
	payment, err := h.Svc.Verify(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "Failed to verify payment")
		return
	}
	common.JSON(w, http.StatusOK, verifyResp{Success: true, Payment: payment.Object()})
}

// Preflight answers CORS preflight requests with an empty 200.
func (h *Handler) Preflight(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Config exposes the publishable key the checkout widget needs.
func (h *Handler) Config(w http.ResponseWriter, _ *http.Request) {
	currency := "INR"
	if h.Svc != nil {
		currency = h.Svc.DefaultCurrencyCode()
	}
	common.JSON(w, http.StatusOK, configResp{KeyID: h.PublicKeyID, Currency: currency})
}

// fail writes the client-facing error. Upstream details stay in the log.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	logger := zerolog.Ctx(r.Context())
	status, message, ok := clientError(err)
	if !ok {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("payment_upstream_failure")
		common.JSONMessage(w, http.StatusInternalServerError, fallback)
		return
	}
	switch {
	case errors.Is(err, ErrInvalidSignature):
		logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("payment_signature_rejected")
	case errors.Is(err, ErrNotCaptured):
		logger.Warn().Msg("payment_not_captured")
	}
	common.JSONMessage(w, status, message)
}

// decodeOrderRequest accepts only a JSON number for amount; strings such as
// "100" are rejected like any other non-number.
func decodeOrderRequest(r *http.Request) (OrderRequest, error) {
	var body createOrderReq
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return OrderRequest{}, ErrInvalidAmount
	}
	num, ok := body.Amount.(json.Number)
	if !ok {
		return OrderRequest{}, ErrInvalidAmount
	}
	amount, err := num.Float64()
	if err != nil {
		return OrderRequest{}, ErrInvalidAmount
	}
	req := OrderRequest{Amount: amount}
	switch c := body.Currency.(type) {
	case nil:
	case string:
		req.Currency = strings.TrimSpace(c)
	default:
		return OrderRequest{}, ErrInvalidCurrency
	}
	return req, nil
}
