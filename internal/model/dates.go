package model

import "time"

// ExpiryFrom computes the warranty expiry: activation plus the given
// number of calendar months, with the day-of-month clamped to the
// target month's last day (Jan 31 + 1 month = Feb 28/29).
func ExpiryFrom(activation time.Time, months int) time.Time {
	y, m, d := activation.Date()
	firstOfTarget := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, activation.Location())
	lastDay := firstOfTarget.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}
	hh, mm, ss := activation.Clock()
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), d, hh, mm, ss, activation.Nanosecond(), activation.Location())
}
