package service

import (
	"time"
)

// startOfDay returns midnight of t's calendar day in t's location
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameCalendarDay reports whether a and b fall on the same day in b's location
func sameCalendarDay(a, b time.Time) bool {
	return startOfDay(a.In(b.Location())).Equal(startOfDay(b))
}

// GetNextDailyReset returns the next calendar-day rollover after now
func GetNextDailyReset(now time.Time) time.Time {
	return startOfDay(now).AddDate(0, 0, 1)
}
