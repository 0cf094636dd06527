package warranty

import (
	"context"
	"fmt"
	"time"

	"warranty-backend/config"
	"warranty-backend/internal/model"
	"warranty-backend/internal/orders"
	"warranty-backend/internal/store"
)

const (
	msgActivated = "Warranty activated successfully!"
	msgPending   = "Warranty activation request submitted. Please wait for approval."
)

// Service owns the warranty lifecycle: activation requests, status
// checks and the admin transitions. All state lives in the store; the
// service only decides what changes and when to notify.
type Service struct {
	store    store.Store
	orders   orders.Lookup
	notifier Dispatcher
	cfg      config.WarrantyConfig
	checkURL string
	now      func() time.Time
}

// NewService wires the lifecycle service. checkURL is the public
// warranty-check page used in certificates and verify links.
func NewService(st store.Store, lookup orders.Lookup, notifier Dispatcher, cfg config.WarrantyConfig, checkURL string) *Service {
	if notifier == nil {
		notifier = Discard{}
	}
	return &Service{
		store:    st,
		orders:   lookup,
		notifier: notifier,
		cfg:      cfg,
		checkURL: checkURL,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ActivationRequest is a customer-submitted activation form.
type ActivationRequest struct {
	CustomerName   string `json:"customer_name"`
	OrderID        string `json:"order_id"`
	PhoneNumber    string `json:"phone_number"`
	ProductName    string `json:"product_name"`
	WarrantyMonths int    `json:"warranty_months"`
}

// ActivationResult reports what the activation request did.
type ActivationResult struct {
	RecordID  int64  `json:"record_id"`
	Activated bool   `json:"activated"`
	Message   string `json:"message"`
}

// Activate handles a customer activation request: validates the form,
// verifies the order/phone pair against the commerce platform, then
// creates or refreshes the warranty record.
func (s *Service) Activate(ctx context.Context, req ActivationRequest) (*ActivationResult, error) {
	if req.CustomerName == "" {
		return nil, validationErr("customer_name", "customer name is required")
	}
	if req.OrderID == "" {
		return nil, validationErr("order_id", "order ID is required")
	}
	if req.PhoneNumber == "" {
		return nil, validationErr("phone_number", "phone number is required")
	}
	if req.WarrantyMonths <= 0 {
		return nil, validationErr("warranty_months", "warranty months must be a positive number")
	}

	order, err := orders.ValidateOrderPhone(ctx, s.orders, req.OrderID, req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindByOrderAndPhone(ctx, req.OrderID, req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	if existing != nil {
		switch existing.Status {
		case model.StatusActive:
			return nil, ErrAlreadyActive
		case model.StatusPending:
			return s.resubmit(ctx, existing, req)
		default:
			// Expired and cancelled records are terminal for the
			// customer flow; reviving one is an admin decision.
			return nil, ErrNotReactivatable
		}
	}

	return s.createFromOrder(ctx, req, order)
}

// resubmit refreshes a pending record with the newly submitted fields
// instead of creating a duplicate.
func (s *Service) resubmit(ctx context.Context, existing *model.WarrantyRecord, req ActivationRequest) (*ActivationResult, error) {
	status := model.StatusPending
	if s.cfg.AutoActivate {
		status = model.StatusActive
	}

	fields := store.UpdateFields{
		CustomerName:   &req.CustomerName,
		ProductName:    &req.ProductName,
		WarrantyMonths: &req.WarrantyMonths,
		Status:         &status,
	}
	if status == model.StatusActive {
		at := s.now()
		fields.ActivationDate = &at
	}

	found, err := s.store.Update(ctx, existing.ID, fields)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	if status == model.StatusActive {
		s.notifyActivated(ctx, existing.ID)
		return &ActivationResult{RecordID: existing.ID, Activated: true, Message: msgActivated}, nil
	}
	return &ActivationResult{RecordID: existing.ID, Message: msgPending}, nil
}

func (s *Service) createFromOrder(ctx context.Context, req ActivationRequest, order *orders.Order) (*ActivationResult, error) {
	status := model.StatusPending
	if s.cfg.AutoActivate {
		status = model.StatusActive
	}

	rec := model.WarrantyRecord{
		OrderID:        req.OrderID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  order.BillingEmail,
		PhoneNumber:    req.PhoneNumber,
		ProductName:    req.ProductName,
		WarrantyMonths: req.WarrantyMonths,
		PurchaseDate:   order.CreatedAt,
		Status:         status,
	}
	if status == model.StatusActive {
		at := s.now()
		rec.ActivationDate = &at
	}

	// Resolve the product id by exact name match; first match wins.
	if req.ProductName != "" {
		for _, item := range order.LineItems {
			if item.Name == req.ProductName {
				id := item.ProductID
				rec.ProductID = &id
				break
			}
		}
	}

	id, err := s.store.Insert(ctx, &rec)
	if err != nil {
		return nil, err
	}

	if status == model.StatusActive {
		s.notifyActivated(ctx, id)
		return &ActivationResult{RecordID: id, Activated: true, Message: msgActivated}, nil
	}
	return &ActivationResult{RecordID: id, Message: msgPending}, nil
}

// notifyActivated re-reads the record so the dispatched snapshot
// carries the store-computed expiry date.
func (s *Service) notifyActivated(ctx context.Context, id int64) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil || rec == nil {
		return
	}
	s.notifier.Dispatch(*rec, EventActivated)
}

// CheckRequest is a customer status lookup; at least one field must
// be set.
type CheckRequest struct {
	OrderID string `json:"order_id"`
	Phone   string `json:"phone"`
}

// CheckResult is the display payload for a warranty status check.
type CheckResult struct {
	CustomerName   string       `json:"customer_name"`
	PhoneNumber    string       `json:"phone_number"`
	OrderID        string       `json:"order_id"`
	ProductName    string       `json:"product_name"`
	PurchaseDate   time.Time    `json:"purchase_date"`
	WarrantyMonths int          `json:"warranty_months"`
	Status         model.Status `json:"status"`
	ActivationDate *time.Time   `json:"activation_date,omitempty"`
	ExpiryDate     *time.Time   `json:"expiry_date,omitempty"`
	Remaining      string       `json:"warranty_remaining,omitempty"`
	StatusInfo
	Certificate *Certificate `json:"certificate,omitempty"`
}

// Check looks up the best matching warranty record and derives its
// display payload. Pure read path; calling it twice with no
// intervening mutation yields identical output for a fixed clock.
func (s *Service) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	if req.OrderID == "" && req.Phone == "" {
		return nil, validationErr("order_id", "please provide either order ID or phone number")
	}

	var rec *model.WarrantyRecord
	if req.OrderID != "" {
		found, err := s.store.FindByOrder(ctx, req.OrderID)
		if err != nil {
			return nil, err
		}
		rec = found
	} else {
		recs, err := s.store.FindByPhone(ctx, req.Phone)
		if err != nil {
			return nil, err
		}
		// Best representative when several warranties share a phone:
		// the first active one, else the newest overall.
		for i := range recs {
			if recs[i].Status == model.StatusActive {
				rec = &recs[i]
				break
			}
		}
		if rec == nil && len(recs) > 0 {
			rec = &recs[0]
		}
	}

	if rec == nil {
		return nil, ErrNotFound
	}
	return s.buildCheckResult(rec), nil
}

// VerifyCheck resolves a certificate verification token into the same
// payload Check produces.
func (s *Service) VerifyCheck(ctx context.Context, token string) (*CheckResult, error) {
	orderID, phone, err := DecodeVerifyToken(token)
	if err != nil {
		return nil, err
	}
	rec, err := s.store.FindByOrderAndPhone(ctx, orderID, phone)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	return s.buildCheckResult(rec), nil
}

func (s *Service) buildCheckResult(rec *model.WarrantyRecord) *CheckResult {
	now := s.now()
	res := &CheckResult{
		CustomerName:   rec.CustomerName,
		PhoneNumber:    rec.PhoneNumber,
		OrderID:        rec.OrderID,
		ProductName:    rec.ProductName,
		PurchaseDate:   rec.PurchaseDate,
		WarrantyMonths: rec.WarrantyMonths,
		Status:         rec.Status,
		ActivationDate: rec.ActivationDate,
		ExpiryDate:     rec.ExpiryDate,
		StatusInfo:     DeriveStatus(rec.Status, rec.ExpiryDate, now),
	}
	if rec.ExpiryDate != nil {
		res.Remaining = FormatRemaining(now, *rec.ExpiryDate)
	}
	if rec.Status == model.StatusActive {
		res.Certificate = BuildCertificate(rec, s.checkURL)
	}
	return res
}

// Approve transitions a pending (or otherwise non-active) record into
// active, stamping the activation date and notifying the customer.
func (s *Service) Approve(ctx context.Context, id int64) (*model.WarrantyRecord, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNotFound
	}
	if rec.Status == model.StatusActive {
		return nil, ErrAlreadyActive
	}

	status := model.StatusActive
	at := s.now()
	found, err := s.store.Update(ctx, id, store.UpdateFields{
		Status:         &status,
		ActivationDate: &at,
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}

	updated, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated != nil {
		s.notifier.Dispatch(*updated, EventActivated)
	}
	return updated, nil
}

// AdminUpsertRequest carries the fields of the admin add/edit forms.
type AdminUpsertRequest struct {
	OrderID        string       `json:"order_id"`
	CustomerName   string       `json:"customer_name"`
	CustomerEmail  string       `json:"customer_email"`
	PhoneNumber    string       `json:"phone_number"`
	ProductName    string       `json:"product_name"`
	WarrantyMonths int          `json:"warranty_months"`
	Status         model.Status `json:"status"`
	PurchaseDate   *time.Time   `json:"purchase_date,omitempty"`
	Notes          string       `json:"notes"`
}

func (r *AdminUpsertRequest) validate(requireOrder bool) error {
	if requireOrder && r.OrderID == "" {
		return validationErr("order_id", "order ID is required")
	}
	if r.CustomerName == "" {
		return validationErr("customer_name", "customer name is required")
	}
	if r.PhoneNumber == "" {
		return validationErr("phone_number", "phone number is required")
	}
	if r.WarrantyMonths <= 0 {
		return validationErr("warranty_months", "warranty months must be a positive number")
	}
	if r.Status != "" && !r.Status.Valid() {
		return validationErr("status", "invalid status")
	}
	return nil
}

// AdminCreate adds a warranty record directly, bypassing order
// validation. Creating it active stamps the activation date.
func (s *Service) AdminCreate(ctx context.Context, req AdminUpsertRequest) (int64, error) {
	if err := req.validate(true); err != nil {
		return 0, err
	}

	rec := model.WarrantyRecord{
		OrderID:        req.OrderID,
		CustomerName:   req.CustomerName,
		CustomerEmail:  req.CustomerEmail,
		PhoneNumber:    req.PhoneNumber,
		ProductName:    req.ProductName,
		WarrantyMonths: req.WarrantyMonths,
		Status:         req.Status,
		Notes:          req.Notes,
	}
	if req.PurchaseDate != nil {
		rec.PurchaseDate = *req.PurchaseDate
	}
	if rec.Status == model.StatusActive {
		at := s.now()
		rec.ActivationDate = &at
	}
	return s.store.Insert(ctx, &rec)
}

// AdminUpdate edits a record. Setting a non-active record to active
// stamps the activation date.
func (s *Service) AdminUpdate(ctx context.Context, id int64, req AdminUpsertRequest) error {
	if err := req.validate(false); err != nil {
		return err
	}
	if req.Status == "" {
		return validationErr("status", "status is required")
	}

	current, err := s.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if current == nil {
		return ErrNotFound
	}

	fields := store.UpdateFields{
		CustomerName:   &req.CustomerName,
		CustomerEmail:  &req.CustomerEmail,
		PhoneNumber:    &req.PhoneNumber,
		ProductName:    &req.ProductName,
		WarrantyMonths: &req.WarrantyMonths,
		Status:         &req.Status,
		Notes:          &req.Notes,
	}
	if req.PurchaseDate != nil {
		fields.PurchaseDate = req.PurchaseDate
	}
	if current.Status != model.StatusActive && req.Status == model.StatusActive {
		at := s.now()
		fields.ActivationDate = &at
	}

	found, err := s.store.Update(ctx, id, fields)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes a record.
func (s *Service) Delete(ctx context.Context, id int64) error {
	found, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// BulkAction applies an admin bulk operation to a set of record ids
// and returns how many records it touched. Bulk status changes are
// explicit overrides with no date checks.
func (s *Service) BulkAction(ctx context.Context, action string, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, validationErr("ids", "no warranty records selected")
	}
	now := s.now()

	switch action {
	case "activate":
		status := model.StatusActive
		var count int64
		for _, id := range ids {
			at := now
			found, err := s.store.Update(ctx, id, store.UpdateFields{
				Status:         &status,
				ActivationDate: &at,
			})
			if err != nil {
				return count, err
			}
			if found {
				count++
			}
		}
		return count, nil
	case "expire":
		return s.store.BulkSetStatus(ctx, ids, model.StatusExpired, now)
	case "cancel":
		return s.store.BulkSetStatus(ctx, ids, model.StatusCancelled, now)
	case "delete":
		var count int64
		for _, id := range ids {
			found, err := s.store.Delete(ctx, id)
			if err != nil {
				return count, err
			}
			if found {
				count++
			}
		}
		return count, nil
	default:
		return 0, validationErr("action", fmt.Sprintf("unknown bulk action %q", action))
	}
}
