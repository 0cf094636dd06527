package model

import "time"

// Status is the lifecycle state of a warranty record.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is one of the recognized lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// WarrantyRecord tracks one product/order's warranty coverage.
type WarrantyRecord struct {
	ID             int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID        string `gorm:"size:100;not null;uniqueIndex:idx_order_phone,priority:1;index" json:"order_id"`
	CustomerName   string `gorm:"size:200;not null" json:"customer_name"`
	CustomerEmail  string `gorm:"size:200" json:"customer_email"`
	PhoneNumber    string `gorm:"size:20;not null;uniqueIndex:idx_order_phone,priority:2;index" json:"phone_number"`
	ProductName    string `gorm:"size:500" json:"product_name"`
	ProductID      *int64 `json:"product_id,omitempty"`
	WarrantyMonths int    `gorm:"not null" json:"warranty_months"`

	PurchaseDate   time.Time  `json:"purchase_date"`
	ActivationDate *time.Time `json:"activation_date,omitempty"`
	ExpiryDate     *time.Time `gorm:"index" json:"expiry_date,omitempty"`
	Status         Status     `gorm:"size:16;not null;index;default:pending" json:"status"`
	Notes          string     `gorm:"type:text" json:"notes"`

	// Stamped when the corresponding sweep notification has been
	// dispatched, so the sweep never sends twice for one record.
	ExpiringNotifiedAt *time.Time `json:"-"`
	ExpiredNotifiedAt  *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
