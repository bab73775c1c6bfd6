package payment

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidAmount rejects a missing, non-numeric or non-positive amount.
	ErrInvalidAmount = errors.New("payment: invalid amount")
	// ErrInvalidCurrency rejects a currency that is not an ISO 4217 code.
	ErrInvalidCurrency = errors.New("payment: invalid currency")
	// ErrInvalidSignature marks a callback whose signature does not match.
	ErrInvalidSignature = errors.New("payment: invalid signature")
	// ErrNotCaptured marks a genuine payment that has not been captured.
	ErrNotCaptured = errors.New("payment: not captured")
	// ErrNotConfigured is returned when the service has no provider or secret.
	ErrNotConfigured = errors.New("payment: service not configured")
)

// ProviderError is a non-2xx answer from the payment provider.
type ProviderError struct {
	Provider    string
	StatusCode  int
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Code == "" && e.Description == "" {
		return fmt.Sprintf("%s: upstream status %d", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s: upstream status %d: %s: %s", e.Provider, e.StatusCode, e.Code, e.Description)
}

// clientError maps domain errors to the status and message the browser sees.
// ok is false for anything that must be hidden behind a generic 500.
func clientError(err error) (status int, message string, ok bool) {
	switch {
	case errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest, "Invalid amount", true
	case errors.Is(err, ErrInvalidCurrency):
		return http.StatusBadRequest, "Invalid currency", true
	case errors.Is(err, ErrInvalidSignature):
		return http.StatusBadRequest, "Invalid payment signature", true
	case errors.Is(err, ErrNotCaptured):
		return http.StatusBadRequest, "Payment not captured", true
	default:
		return http.StatusInternalServerError, "", false
	}
}
