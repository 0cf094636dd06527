package store

import (
	"time"

	"warranty-backend/internal/model"
)

// ListFilter narrows and pages the admin warranty listing.
type ListFilter struct {
	Status  model.Status
	Search  string
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// Stats aggregates warranty counts for the admin dashboard.
type Stats struct {
	Total                int64 `json:"total"`
	Pending              int64 `json:"pending"`
	Active               int64 `json:"active"`
	Expired              int64 `json:"expired"`
	Cancelled            int64 `json:"cancelled"`
	ExpiringSoon         int64 `json:"expiring_soon"`
	ThisMonthActivations int64 `json:"this_month_activations"`
}

// UpdateFields is a partial update of a warranty record. Nil fields
// are left untouched by Update.
type UpdateFields struct {
	CustomerName   *string
	CustomerEmail  *string
	PhoneNumber    *string
	ProductName    *string
	ProductID      *int64
	WarrantyMonths *int
	PurchaseDate   *time.Time
	ActivationDate *time.Time
	Status         *model.Status
	Notes          *string
}

// NotifyEvent identifies which sweep notification marker to stamp.
type NotifyEvent string

const (
	NotifyExpiring NotifyEvent = "expiring"
	NotifyExpired  NotifyEvent = "expired"
)
