package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// PaymentMethod is stored lowercase. Booking sent lowercase tags and top-ups
// sent capitalized ones; both parse to the same values.
type PaymentMethod string

const (
	PaymentMethodWallet PaymentMethod = "wallet"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodUPI    PaymentMethod = "upi"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch m := PaymentMethod(strings.ToLower(strings.TrimSpace(s))); m {
	case PaymentMethodWallet, PaymentMethodCard, PaymentMethodUPI:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported payment method %q", s)
	}
}

type PaymentStatus string

const (
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

type Payment struct {
	Base
	UserID        uuid.UUID     `db:"user_id" json:"user_id"`
	AppointmentID *uuid.UUID    `db:"appointment_id" json:"appointment_id,omitempty"`
	Amount        float64       `db:"amount" json:"amount"`
	Method        PaymentMethod `db:"payment_method" json:"payment_method"`
	// Details holds encrypted card/UPI details; never serialized.
	Details string        `db:"payment_details" json:"-"`
	Status  PaymentStatus `db:"status" json:"status"`
}

type Wallet struct {
	UserID  uuid.UUID `db:"user_id" json:"user_id"`
	Balance float64   `db:"balance" json:"balance"`
}

type AddFundsRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0,lte=50000,money2dp"`
	Method string  `json:"method" binding:"required"`
}

type WalletSummary struct {
	Wallet
	Payments []*Payment `json:"payments"`
}
