// Package payment talks to the external payment provider.
package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrUnavailable is returned when the provider cannot be reached, rejects
// our credentials, fails on its side, or is not configured.
var ErrUnavailable = errors.New("payment provider unavailable")

// Status is the provider's authoritative state of a payment.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// CheckoutRequest asks the provider for a hosted checkout page.
type CheckoutRequest struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	FirstName   string
	LastName    string
	Phone       string
	CallbackURL string
	ReturnURL   string
	Title       string
	Description string
	Metadata    map[string]string
}

// Checkout is the provider's answer to a CheckoutRequest.
type Checkout struct {
	Reference   string
	CheckoutURL string
}

// Verification is the provider's view of one reference.
type Verification struct {
	Reference string
	Status    Status
	Amount    decimal.Decimal
	Currency  string
}

// Provider is the external payment gateway.
type Provider interface {
	Initialize(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	Verify(ctx context.Context, reference string) (*Verification, error)
}
