// Package utils provides shared utility functions.
package utils

import (
	"time"
)

// IndiaLocation is the timezone for Indian markets.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// Derivatives contracts settle at the 15:30 exchange close.
const (
	ExpiryHour   = 15
	ExpiryMinute = 30
)

// AtExpiryTime returns the given day pinned to the 15:30 exchange close.
func AtExpiryTime(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), ExpiryHour, ExpiryMinute, 0, 0, day.Location())
}

// NextThursday returns the next Thursday strictly after the given time,
// at the exchange close. A Thursday rolls over to the following week.
func NextThursday(from time.Time) time.Time {
	days := (int(time.Thursday) - int(from.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return AtExpiryTime(from.AddDate(0, 0, days))
}

// LastThursdayOfMonth returns the last Thursday of the given month,
// at the exchange close.
func LastThursdayOfMonth(year int, month time.Month, loc *time.Location) time.Time {
	firstOfNext := time.Date(year, month+1, 1, 0, 0, 0, 0, loc)
	day := firstOfNext.AddDate(0, 0, -1)
	for day.Weekday() != time.Thursday {
		day = day.AddDate(0, 0, -1)
	}
	return AtExpiryTime(day)
}

// SameDay checks if two times are on the same calendar day.
func SameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// YearFraction returns whole days between the two times as a fraction
// of a 365-day year, floored at zero.
func YearFraction(from, to time.Time) float64 {
	days := to.Sub(from).Hours() / 24
	frac := float64(int(days)) / 365.0
	if frac < 0 {
		return 0
	}
	return frac
}
