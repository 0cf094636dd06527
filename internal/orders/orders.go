package orders

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Typed failures of the order/phone validation step.
var (
	ErrOrderNotFound    = errors.New("invalid order ID")
	ErrOrderNotEligible = errors.New("order must be completed to activate warranty")
	ErrNoPhoneOnOrder   = errors.New("no phone number found in order records")
	ErrPhoneMismatch    = errors.New("phone number does not match order records")
)

// LineItem is one purchased item on an order.
type LineItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// Order is the slice of commerce-side order data the warranty flow
// needs.
type Order struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"`
	BillingName  string     `json:"billing_name"`
	BillingPhone string     `json:"billing_phone"`
	BillingEmail string     `json:"billing_email"`
	CreatedAt    time.Time  `json:"created_at"`
	LineItems    []LineItem `json:"line_items"`
}

// Lookup retrieves orders from the commerce platform. Implementations
// return ErrOrderNotFound for unknown ids and fail fast otherwise.
type Lookup interface {
	Get(ctx context.Context, orderID string) (*Order, error)
}

// eligibleStatuses are the order states that permit warranty
// activation.
var eligibleStatuses = map[string]bool{
	"completed":  true,
	"processing": true,
}

// ValidateOrderPhone checks that the order exists, is in an eligible
// state, and that the submitted phone matches the order's billing
// phone under the normalization rule.
func ValidateOrderPhone(ctx context.Context, lookup Lookup, orderID, phone string) (*Order, error) {
	order, err := lookup.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !eligibleStatuses[order.Status] {
		return nil, ErrOrderNotEligible
	}
	if order.BillingPhone == "" {
		return nil, ErrNoPhoneOnOrder
	}
	if !PhonesMatch(phone, order.BillingPhone) {
		return nil, ErrPhoneMismatch
	}
	return order, nil
}

// PhonesMatch compares two phone numbers digits-only: an exact match,
// or a match on the last 10 digits of both sides. The latter
// tolerates country-code prefixes.
func PhonesMatch(a, b string) bool {
	da := digitsOnly(a)
	db := digitsOnly(b)
	if da == "" || db == "" {
		return false
	}
	if da == db {
		return true
	}
	if len(da) >= 10 && len(db) >= 10 {
		return da[len(da)-10:] == db[len(db)-10:]
	}
	return false
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
