package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrAlreadyExists, ErrInvalidInput, ErrUnauthorized,
		ErrForbidden, ErrInternal, ErrConflict, ErrServiceUnavail,
		ErrPaymentFailed, ErrRateLimited,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j])
		}
	}
}

func TestAppError_ErrorString(t *testing.T) {
	withInner := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: fmt.Errorf("db connection lost")}
	assert.Contains(t, withInner.Error(), "db connection lost")

	bare := &AppError{Code: "NOT_FOUND", Message: "Order not found"}
	assert.Equal(t, "NOT_FOUND: Order not found", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		code     string
		message  string
		status   int
		sentinel error
	}{
		{"not found", NotFound("Product"), "NOT_FOUND", "Product not found", http.StatusNotFound, ErrNotFound},
		{"already exists", AlreadyExists("Email already registered"), "ALREADY_EXISTS", "Email already registered", http.StatusConflict, ErrAlreadyExists},
		{"invalid input", InvalidInput("Cart is empty"), "INVALID_INPUT", "Cart is empty", http.StatusBadRequest, ErrInvalidInput},
		{"invalid input formatted", InvalidInputf("Minimum order quantity is %d", 6), "INVALID_INPUT", "Minimum order quantity is 6", http.StatusBadRequest, ErrInvalidInput},
		{"unauthorized", Unauthorized("Incorrect email or password"), "UNAUTHORIZED", "Incorrect email or password", http.StatusUnauthorized, ErrUnauthorized},
		{"forbidden", Forbidden("Admin access required"), "FORBIDDEN", "Admin access required", http.StatusForbidden, ErrForbidden},
		{"conflict", Conflict("Order cannot be cancelled"), "CONFLICT", "Order cannot be cancelled", http.StatusConflict, ErrConflict},
		{"payment failed", PaymentFailed("card declined"), "PAYMENT_FAILED", "card declined", http.StatusUnprocessableEntity, ErrPaymentFailed},
		{"unavailable", Unavailable("payments disabled"), "SERVICE_UNAVAILABLE", "payments disabled", http.StatusServiceUnavailable, ErrServiceUnavail},
		{"rate limited", RateLimited("slow down"), "RATE_LIMITED", "slow down", http.StatusTooManyRequests, ErrRateLimited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.err)
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.message, tt.err.Message)
			assert.Equal(t, tt.status, tt.err.Status)
			assert.True(t, errors.Is(tt.err, tt.sentinel))
		})
	}
}

func TestInternal(t *testing.T) {
	err := Internal(fmt.Errorf("segfault"))
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.Contains(t, err.Error(), "segfault")
}

func TestWrap(t *testing.T) {
	wrapped := Wrap(ErrNotFound, "get order")
	assert.Contains(t, wrapped.Error(), "get order")
	assert.True(t, errors.Is(wrapped, ErrNotFound))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{NotFound("Review"), http.StatusNotFound},
		{ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("outer: %w", ErrNotFound), http.StatusNotFound},
		{ErrAlreadyExists, http.StatusConflict},
		{ErrConflict, http.StatusConflict},
		{ErrInvalidInput, http.StatusBadRequest},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{ErrPaymentFailed, http.StatusUnprocessableEntity},
		{ErrRateLimited, http.StatusTooManyRequests},
		{ErrServiceUnavail, http.StatusServiceUnavailable},
		{fmt.Errorf("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.status, HTTPStatus(tt.err))
		})
	}
}
