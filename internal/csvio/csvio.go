package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"warranty-backend/internal/model"
	"warranty-backend/internal/store"
)

var exportHeader = []string{
	"Order ID", "Customer Name", "Customer Email", "Phone Number",
	"Product Name", "Warranty Months", "Purchase Date",
	"Activation Date", "Expiry Date", "Status", "Created Date",
}

const dateLayout = "2006-01-02 15:04:05"

// WriteExport streams all matching records as CSV, newest first. The
// UTF-8 BOM keeps Excel happy.
func WriteExport(ctx context.Context, w io.Writer, st store.Store, status model.Status) error {
	if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	err := st.Export(ctx, status, func(rec model.WarrantyRecord) error {
		return cw.Write([]string{
			rec.OrderID,
			rec.CustomerName,
			rec.CustomerEmail,
			rec.PhoneNumber,
			rec.ProductName,
			strconv.Itoa(rec.WarrantyMonths),
			rec.PurchaseDate.Format(dateLayout),
			formatDate(rec.ActivationDate),
			formatDate(rec.ExpiryDate),
			string(rec.Status),
			rec.CreatedAt.Format(dateLayout),
		})
	})
	if err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(dateLayout)
}

// ImportResult summarizes one CSV import run.
type ImportResult struct {
	Imported int      `json:"imported"`
	Updated  int      `json:"updated"`
	Errors   []string `json:"errors,omitempty"`
}

var requiredColumns = []string{"order_id", "customer_name", "phone_number", "warranty_months"}

// Import reads CSV rows and inserts or (optionally) updates warranty
// records keyed on the (order_id, phone_number) pair. Rows missing a
// required field are reported and skipped; an unrecognized status
// value is dropped from its row rather than rejecting the row.
func Import(ctx context.Context, r io.Reader, st store.Store, updateExisting bool) (*ImportResult, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeHeader(h)] = i
	}

	result := &ImportResult{}
	line := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", line, err))
			continue
		}

		missing := false
		for _, col := range requiredColumns {
			if cell(row, cols, col) == "" {
				missing = true
				break
			}
		}
		if missing {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: missing required fields", line))
			continue
		}

		months, err := strconv.Atoi(cell(row, cols, "warranty_months"))
		if err != nil || months <= 0 {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: invalid warranty_months", line))
			continue
		}

		rec := model.WarrantyRecord{
			OrderID:        cell(row, cols, "order_id"),
			CustomerName:   cell(row, cols, "customer_name"),
			CustomerEmail:  cell(row, cols, "customer_email"),
			PhoneNumber:    cell(row, cols, "phone_number"),
			ProductName:    cell(row, cols, "product_name"),
			WarrantyMonths: months,
		}
		if status := model.Status(strings.ToLower(cell(row, cols, "status"))); status.Valid() {
			rec.Status = status
		}
		if raw := cell(row, cols, "purchase_date"); raw != "" {
			if t, err := parseDate(raw); err == nil {
				rec.PurchaseDate = t
			}
		}

		existing, err := st.FindByOrderAndPhone(ctx, rec.OrderID, rec.PhoneNumber)
		if err != nil {
			return result, err
		}

		switch {
		case existing != nil && updateExisting:
			fields := store.UpdateFields{
				CustomerName:   &rec.CustomerName,
				PhoneNumber:    &rec.PhoneNumber,
				WarrantyMonths: &rec.WarrantyMonths,
			}
			if rec.CustomerEmail != "" {
				fields.CustomerEmail = &rec.CustomerEmail
			}
			if rec.ProductName != "" {
				fields.ProductName = &rec.ProductName
			}
			if rec.Status != "" {
				fields.Status = &rec.Status
			}
			if !rec.PurchaseDate.IsZero() {
				fields.PurchaseDate = &rec.PurchaseDate
			}
			if _, err := st.Update(ctx, existing.ID, fields); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: failed to update warranty", line))
				continue
			}
			result.Updated++
		case existing == nil:
			if _, err := st.Insert(ctx, &rec); err != nil {
				result.Errors = append(result.Errors, fmt.Sprintf("Row %d: failed to insert warranty", line))
				continue
			}
			result.Imported++
		}
	}

	return result, nil
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\xEF\xBB\xBF")))
	return strings.ReplaceAll(h, " ", "_")
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func parseDate(raw string) (time.Time, error) {
	for _, layout := range []string{dateLayout, "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
