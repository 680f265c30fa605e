package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFound("appointment", sql.ErrNoRows), http.StatusNotFound},
		{"invalid input", NewInvalidInput("bad amount", nil), http.StatusBadRequest},
		{"conflict", NewConflict("slot taken", nil), http.StatusConflict},
		{"insufficient funds", NewInsufficientFunds(600, 500), http.StatusPaymentRequired},
		{"forbidden", Forbidden("doctors only"), http.StatusForbidden},
		{"wrapped", fmt.Errorf("booking: %w", NewConflict("slot taken", nil)), http.StatusConflict},
		{"plain error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestIsAndMessage(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewInsufficientFunds(600, 500))

	assert.True(t, Is(err, ErrInsufficientFunds))
	assert.False(t, Is(err, ErrConflict))
	assert.Equal(t, "insufficient wallet balance: need 600.00, have 500.00", Message(err))
	assert.Equal(t, "internal server error", Message(fmt.Errorf("driver: connection reset")))
}
