package model

import "time"

// PushSubscription holds a browser push subscription for expiry
// reminders on a single warranty record.
type PushSubscription struct {
	Endpoint   string `gorm:"primaryKey"`
	P256DH     string `gorm:"column:p256dh;not null"`
	Auth       string `gorm:"not null"`
	WarrantyID int64  `gorm:"index;not null"`
	CreatedAt  time.Time `gorm:"not null"`

	// Associations
	Warranty WarrantyRecord `gorm:"foreignKey:WarrantyID;constraint:OnDelete:CASCADE"`
}
