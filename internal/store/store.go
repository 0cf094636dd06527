package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"warranty-backend/internal/model"
)

// ErrDuplicate is returned by Insert when a record for the same
// (order_id, phone_number) pair already exists.
var ErrDuplicate = errors.New("warranty record already exists for this order and phone")

// Store defines the interface for all warranty database operations.
type Store interface {
	DB() *gorm.DB

	Insert(ctx context.Context, rec *model.WarrantyRecord) (int64, error)
	Update(ctx context.Context, id int64, fields UpdateFields) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)

	FindByID(ctx context.Context, id int64) (*model.WarrantyRecord, error)
	FindByOrder(ctx context.Context, orderID string) (*model.WarrantyRecord, error)
	FindByPhone(ctx context.Context, phone string) ([]model.WarrantyRecord, error)
	FindByOrderAndPhone(ctx context.Context, orderID, phone string) (*model.WarrantyRecord, error)

	List(ctx context.Context, f ListFilter) ([]model.WarrantyRecord, int64, error)
	Count(ctx context.Context, status model.Status) (int64, error)
	Stats(ctx context.Context, now time.Time) (*Stats, error)
	Export(ctx context.Context, status model.Status, fn func(model.WarrantyRecord) error) error

	BulkSetStatus(ctx context.Context, ids []int64, status model.Status, now time.Time) (int64, error)
	SweepExpired(ctx context.Context, now time.Time) (int64, error)
	FindExpiring(ctx context.Context, now time.Time, window time.Duration) ([]model.WarrantyRecord, error)
	FindNewlyExpired(ctx context.Context, now time.Time, window time.Duration) ([]model.WarrantyRecord, error)
	MarkNotified(ctx context.Context, id int64, event NotifyEvent, at time.Time) error
	CleanupOldRecords(ctx context.Context, now time.Time, olderThan time.Duration) (int64, error)
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// applyExpiry enforces the expiry invariants on a record in place:
// pending and cancelled records carry no expiry date, everything else
// derives it from activation_date + warranty_months.
func applyExpiry(rec *model.WarrantyRecord) {
	switch rec.Status {
	case model.StatusPending, model.StatusCancelled:
		rec.ExpiryDate = nil
	default:
		if rec.ActivationDate != nil && rec.WarrantyMonths > 0 {
			expiry := model.ExpiryFrom(*rec.ActivationDate, rec.WarrantyMonths)
			rec.ExpiryDate = &expiry
		}
	}
}

// isDuplicateErr recognizes a unique-index violation from either the
// postgres or the sqlite driver.
func isDuplicateErr(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

func (s *gormStore) Insert(ctx context.Context, rec *model.WarrantyRecord) (int64, error) {
	if rec.Status == "" {
		rec.Status = model.StatusPending
	}
	if rec.PurchaseDate.IsZero() {
		rec.PurchaseDate = time.Now().UTC()
	}
	applyExpiry(rec)

	existing, err := s.FindByOrderAndPhone(ctx, rec.OrderID, rec.PhoneNumber)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return 0, ErrDuplicate
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicateErr(err) {
			return 0, ErrDuplicate
		}
		return 0, fmt.Errorf("failed to insert warranty record: %w", err)
	}
	return rec.ID, nil
}

func (s *gormStore) Update(ctx context.Context, id int64, fields UpdateFields) (bool, error) {
	found := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.WarrantyRecord
		if err := tx.First(&rec, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true

		if fields.CustomerName != nil {
			rec.CustomerName = *fields.CustomerName
		}
		if fields.CustomerEmail != nil {
			rec.CustomerEmail = *fields.CustomerEmail
		}
		if fields.PhoneNumber != nil {
			rec.PhoneNumber = *fields.PhoneNumber
		}
		if fields.ProductName != nil {
			rec.ProductName = *fields.ProductName
		}
		if fields.ProductID != nil {
			rec.ProductID = fields.ProductID
		}
		if fields.WarrantyMonths != nil {
			rec.WarrantyMonths = *fields.WarrantyMonths
		}
		if fields.PurchaseDate != nil {
			rec.PurchaseDate = *fields.PurchaseDate
		}
		if fields.ActivationDate != nil {
			rec.ActivationDate = fields.ActivationDate
		}
		if fields.Status != nil {
			rec.Status = *fields.Status
		}
		if fields.Notes != nil {
			rec.Notes = *fields.Notes
		}

		applyExpiry(&rec)
		rec.UpdatedAt = time.Now().UTC()
		return tx.Save(&rec).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to update warranty record %d: %w", id, err)
	}
	return found, nil
}

func (s *gormStore) Delete(ctx context.Context, id int64) (bool, error) {
	res := s.db.WithContext(ctx).Delete(&model.WarrantyRecord{}, id)
	if res.Error != nil {
		return false, fmt.Errorf("failed to delete warranty record %d: %w", id, res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *gormStore) FindByID(ctx context.Context, id int64) (*model.WarrantyRecord, error) {
	var rec model.WarrantyRecord
	err := s.db.WithContext(ctx).First(&rec, id).Error
	return oneOrNone(&rec, err)
}

// FindByOrder returns the most recently created record for the order.
// Matching normally also requires the phone, but duplicates for one
// order can exist across phone numbers.
func (s *gormStore) FindByOrder(ctx context.Context, orderID string) (*model.WarrantyRecord, error) {
	var rec model.WarrantyRecord
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at DESC").
		First(&rec).Error
	return oneOrNone(&rec, err)
}

func (s *gormStore) FindByPhone(ctx context.Context, phone string) ([]model.WarrantyRecord, error) {
	var recs []model.WarrantyRecord
	err := s.db.WithContext(ctx).
		Where("phone_number = ?", phone).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query warranties by phone: %w", err)
	}
	return recs, nil
}

func (s *gormStore) FindByOrderAndPhone(ctx context.Context, orderID, phone string) (*model.WarrantyRecord, error) {
	var rec model.WarrantyRecord
	err := s.db.WithContext(ctx).
		Where("order_id = ? AND phone_number = ?", orderID, phone).
		First(&rec).Error
	return oneOrNone(&rec, err)
}

func oneOrNone(rec *model.WarrantyRecord, err error) (*model.WarrantyRecord, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

var listOrderColumns = map[string]bool{
	"id": true, "created_at": true, "expiry_date": true,
	"customer_name": true, "status": true, "order_id": true,
}

func (s *gormStore) List(ctx context.Context, f ListFilter) ([]model.WarrantyRecord, int64, error) {
	q := s.db.WithContext(ctx).Model(&model.WarrantyRecord{})
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Search != "" {
		term := "%" + f.Search + "%"
		q = q.Where(
			"customer_name LIKE ? OR order_id LIKE ? OR phone_number LIKE ? OR product_name LIKE ?",
			term, term, term, term,
		)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count warranties: %w", err)
	}

	orderBy := f.OrderBy
	if !listOrderColumns[orderBy] {
		orderBy = "created_at"
	}
	dir := "ASC"
	if f.Desc || f.OrderBy == "" {
		dir = "DESC"
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}

	var recs []model.WarrantyRecord
	err := q.Order(orderBy + " " + dir).Limit(limit).Offset(f.Offset).Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list warranties: %w", err)
	}
	return recs, total, nil
}

func (s *gormStore) Count(ctx context.Context, status model.Status) (int64, error) {
	q := s.db.WithContext(ctx).Model(&model.WarrantyRecord{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count warranties: %w", err)
	}
	return n, nil
}

func (s *gormStore) Stats(ctx context.Context, now time.Time) (*Stats, error) {
	stats := &Stats{}

	type statusCount struct {
		Status model.Status
		Count  int64
	}
	var rows []statusCount
	err := s.db.WithContext(ctx).Model(&model.WarrantyRecord{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate status counts: %w", err)
	}
	for _, row := range rows {
		stats.Total += row.Count
		switch row.Status {
		case model.StatusPending:
			stats.Pending = row.Count
		case model.StatusActive:
			stats.Active = row.Count
		case model.StatusExpired:
			stats.Expired = row.Count
		case model.StatusCancelled:
			stats.Cancelled = row.Count
		}
	}

	err = s.db.WithContext(ctx).Model(&model.WarrantyRecord{}).
		Where("status = ? AND expiry_date > ? AND expiry_date <= ?",
			model.StatusActive, now, now.AddDate(0, 0, 30)).
		Count(&stats.ExpiringSoon).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count expiring warranties: %w", err)
	}

	firstOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	err = s.db.WithContext(ctx).Model(&model.WarrantyRecord{}).
		Where("activation_date >= ?", firstOfMonth).
		Count(&stats.ThisMonthActivations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count month activations: %w", err)
	}

	return stats, nil
}

// Export streams flat records newest-first to fn, stopping on the
// first error fn returns.
func (s *gormStore) Export(ctx context.Context, status model.Status, fn func(model.WarrantyRecord) error) error {
	q := s.db.WithContext(ctx).Model(&model.WarrantyRecord{})
	if status != "" {
		q = q.Where("status = ?", status)
	}
	rows, err := q.Order("created_at DESC").Rows()
	if err != nil {
		return fmt.Errorf("failed to open export cursor: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec model.WarrantyRecord
		if err := s.db.ScanRows(rows, &rec); err != nil {
			return fmt.Errorf("failed to scan export row: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *gormStore) BulkSetStatus(ctx context.Context, ids []int64, status model.Status, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	updates := map[string]any{"status": status, "updated_at": now}
	// Pending and cancelled records carry no expiry date, same as the
	// single-record update path.
	if status == model.StatusPending || status == model.StatusCancelled {
		updates["expiry_date"] = nil
	}
	res := s.db.WithContext(ctx).Model(&model.WarrantyRecord{}).
		Where("id IN ?", ids).
		Updates(updates)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to bulk update status: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// SweepExpired transitions every active record whose expiry has
// passed into expired. A single UPDATE statement, safe to run
// concurrently with user-triggered writes.
func (s *gormStore) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.WarrantyRecord{}).
		Where("status = ? AND expiry_date < ?", model.StatusActive, now).
		Updates(map[string]any{"status": model.StatusExpired, "updated_at": now})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep expired warranties: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *gormStore) FindExpiring(ctx context.Context, now time.Time, window time.Duration) ([]model.WarrantyRecord, error) {
	var recs []model.WarrantyRecord
	err := s.db.WithContext(ctx).
		Where("status = ? AND expiry_date > ? AND expiry_date <= ? AND expiring_notified_at IS NULL",
			model.StatusActive, now, now.Add(window)).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query expiring warranties: %w", err)
	}
	return recs, nil
}

func (s *gormStore) FindNewlyExpired(ctx context.Context, now time.Time, window time.Duration) ([]model.WarrantyRecord, error) {
	var recs []model.WarrantyRecord
	err := s.db.WithContext(ctx).
		Where("status = ? AND expiry_date > ? AND expiry_date <= ? AND expired_notified_at IS NULL",
			model.StatusExpired, now.Add(-window), now).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query newly expired warranties: %w", err)
	}
	return recs, nil
}

func (s *gormStore) MarkNotified(ctx context.Context, id int64, event NotifyEvent, at time.Time) error {
	var column string
	switch event {
	case NotifyExpiring:
		column = "expiring_notified_at"
	case NotifyExpired:
		column = "expired_notified_at"
	default:
		return fmt.Errorf("unknown notify event %q", event)
	}
	err := s.db.WithContext(ctx).Model(&model.WarrantyRecord{}).
		Where("id = ?", id).
		Update(column, at).Error
	if err != nil {
		return fmt.Errorf("failed to mark %s notification for record %d: %w", event, id, err)
	}
	return nil
}

// CleanupOldRecords removes expired records whose coverage ended more
// than olderThan ago.
func (s *gormStore) CleanupOldRecords(ctx context.Context, now time.Time, olderThan time.Duration) (int64, error) {
	res := s.db.WithContext(ctx).
		Where("status = ? AND expiry_date < ?", model.StatusExpired, now.Add(-olderThan)).
		Delete(&model.WarrantyRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to clean up old warranty records: %w", res.Error)
	}
	return res.RowsAffected, nil
}
