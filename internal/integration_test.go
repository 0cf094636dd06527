package internal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"warranty-backend/config"
	"warranty-backend/internal/db"
	"warranty-backend/internal/model"
	"warranty-backend/internal/orders"
	"warranty-backend/internal/store"
	"warranty-backend/internal/sweep"
	"warranty-backend/internal/warranty"
)

type staticLookup struct {
	order *orders.Order
}

func (s *staticLookup) Get(_ context.Context, orderID string) (*orders.Order, error) {
	if s.order != nil && s.order.ID == orderID {
		return s.order, nil
	}
	return nil, orders.ErrOrderNotFound
}

// TestWarrantyLifecycle walks one warranty from customer submission
// through approval, coverage, and the final expiry sweep, verifying
// the database state at each step.
func TestWarrantyLifecycle(t *testing.T) {
	// --- Test Setup ---

	testDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to the in-memory database: %v", err)
	}
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	err = db.Migrate(testDB)
	assert.NoError(t, err)

	st := store.NewGormStore(testDB)
	lookup := &staticLookup{order: &orders.Order{
		ID:           "1001",
		Status:       "completed",
		BillingPhone: "+1 555-123-4567",
		BillingEmail: "jane@example.com",
		CreatedAt:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		LineItems:    []orders.LineItem{{ProductID: 77, Name: "Washing Machine X200"}},
	}}

	cfg := config.WarrantyConfig{DefaultWarrantyMonths: []int{6, 12, 18, 24, 36}}
	svc := warranty.NewService(st, lookup, nil, cfg, "https://shop.example.com/warranty-check")
	ctx := context.Background()

	var recordID int64

	t.Run("Customer Submits Activation Request", func(t *testing.T) {
		res, err := svc.Activate(ctx, warranty.ActivationRequest{
			CustomerName:   "Jane Doe",
			OrderID:        "1001",
			PhoneNumber:    "5551234567",
			ProductName:    "Washing Machine X200",
			WarrantyMonths: 12,
		})
		assert.NoError(t, err)
		assert.False(t, res.Activated, "without auto-activate the request waits for approval")
		recordID = res.RecordID

		rec, err := st.FindByID(ctx, recordID)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusPending, rec.Status)
		assert.Nil(t, rec.ActivationDate)
		assert.Nil(t, rec.ExpiryDate)
		assert.Equal(t, "jane@example.com", rec.CustomerEmail, "billing email is captured from the order")
	})

	t.Run("Admin Approves The Request", func(t *testing.T) {
		rec, err := svc.Approve(ctx, recordID)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusActive, rec.Status)
		assert.NotNil(t, rec.ActivationDate)
		assert.WithinDuration(t, time.Now().UTC(), *rec.ActivationDate, 5*time.Second)
		assert.NotNil(t, rec.ExpiryDate, "approval computes the expiry date")
		assert.Equal(t, model.ExpiryFrom(*rec.ActivationDate, 12), *rec.ExpiryDate)
	})

	t.Run("Customer Checks By Phone", func(t *testing.T) {
		res, err := svc.Check(ctx, warranty.CheckRequest{Phone: "5551234567"})
		assert.NoError(t, err)
		assert.Equal(t, "active", res.Class)
		assert.Equal(t, "Your warranty is active and valid.", res.Message)
		assert.NotEmpty(t, res.Remaining)
		assert.NotNil(t, res.Certificate, "active warranties come with a certificate")
		assert.NotEmpty(t, res.Certificate.QRCodePNG)
	})

	t.Run("Resubmission Of Active Warranty Is Rejected", func(t *testing.T) {
		_, err := svc.Activate(ctx, warranty.ActivationRequest{
			CustomerName:   "Jane Doe",
			OrderID:        "1001",
			PhoneNumber:    "5551234567",
			WarrantyMonths: 12,
		})
		assert.ErrorIs(t, err, warranty.ErrAlreadyActive)

		var count int64
		testDB.Model(&model.WarrantyRecord{}).Count(&count)
		assert.Equal(t, int64(1), count, "no duplicate record is created")
	})

	t.Run("Sweep Expires Lapsed Coverage", func(t *testing.T) {
		// Backdate the activation so the coverage has lapsed.
		past := time.Now().UTC().AddDate(-2, 0, 0)
		found, err := st.Update(ctx, recordID, store.UpdateFields{ActivationDate: &past})
		assert.NoError(t, err)
		assert.True(t, found)

		sweeper := sweep.NewService(config.SweepConfig{
			ExpiringWindowDays:      30,
			NewlyExpiredWindowHours: 24,
		}, st, nil)
		sweeper.RunOnce(ctx)

		rec, err := st.FindByID(ctx, recordID)
		assert.NoError(t, err)
		assert.Equal(t, model.StatusExpired, rec.Status)

		res, err := svc.Check(ctx, warranty.CheckRequest{OrderID: "1001"})
		assert.NoError(t, err)
		assert.Equal(t, "expired", res.Class)
		assert.Equal(t, "Expired", res.Remaining)
		assert.Nil(t, res.Certificate, "expired warranties lose the certificate")
	})

	t.Run("Expired Warranty Cannot Be Resubmitted", func(t *testing.T) {
		_, err := svc.Activate(ctx, warranty.ActivationRequest{
			CustomerName:   "Jane Doe",
			OrderID:        "1001",
			PhoneNumber:    "5551234567",
			WarrantyMonths: 12,
		})
		assert.ErrorIs(t, err, warranty.ErrNotReactivatable)
	})
}
