package warranty

import (
	"fmt"
	"time"

	"warranty-backend/internal/model"
)

// StatusInfo is the human-facing classification of a record's state.
type StatusInfo struct {
	Class   string `json:"status_class"`
	Message string `json:"status_message"`
}

// DeriveStatus classifies a record for display. An active record past
// its expiry is shown as expired even though the stored status stays
// active until the next sweep.
func DeriveStatus(status model.Status, expiry *time.Time, now time.Time) StatusInfo {
	switch status {
	case model.StatusActive:
		if expiry != nil {
			if !expiry.After(now) {
				return StatusInfo{Class: "expired", Message: "Your warranty has expired."}
			}
			days := int(expiry.Sub(now).Hours() / 24)
			if days <= 30 {
				// Within the final day the count floors to one, never
				// zero, while the warranty is still valid.
				if days < 1 {
					days = 1
				}
				return StatusInfo{
					Class:   "expiring",
					Message: fmt.Sprintf("Your warranty is active but expiring in %s.", plural(days, "day")),
				}
			}
		}
		return StatusInfo{Class: "active", Message: "Your warranty is active and valid."}
	case model.StatusPending:
		return StatusInfo{Class: "pending", Message: "Your warranty activation is pending approval. We will notify you once it's processed."}
	case model.StatusExpired:
		return StatusInfo{Class: "expired", Message: "Your warranty has expired. Thank you for choosing our products."}
	case model.StatusCancelled:
		return StatusInfo{Class: "cancelled", Message: "Your warranty has been cancelled. Please contact us if you believe this is an error."}
	default:
		return StatusInfo{Class: "unknown", Message: "Unknown warranty status. Please contact support."}
	}
}

// FormatRemaining renders the calendar time left until expiry as the
// largest two non-zero units, or "Expired" once the date has passed.
func FormatRemaining(now, expiry time.Time) string {
	if !expiry.After(now) {
		return "Expired"
	}

	years, months, days := calendarDiff(now, expiry)

	switch {
	case years > 0:
		return fmt.Sprintf("%s, %s", plural(years, "year"), plural(months, "month"))
	case months > 0:
		return fmt.Sprintf("%s, %s", plural(months, "month"), plural(days, "day"))
	default:
		return plural(days, "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

// calendarDiff computes the whole years, months and days between two
// instants, borrowing days from the month preceding `to` when needed.
func calendarDiff(from, to time.Time) (years, months, days int) {
	years = to.Year() - from.Year()
	months = int(to.Month()) - int(from.Month())
	days = to.Day() - from.Day()

	if days < 0 {
		prevMonthEnd := time.Date(to.Year(), to.Month(), 0, 0, 0, 0, 0, to.Location())
		days += prevMonthEnd.Day()
		months--
	}
	if months < 0 {
		months += 12
		years--
	}
	return years, months, days
}
