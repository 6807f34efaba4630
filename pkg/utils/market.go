package utils

import (
	"time"
)

// TokyoLocation is the timezone of the Tokyo Stock Exchange.
var TokyoLocation *time.Location

func init() {
	var err error
	TokyoLocation, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		// Fallback to UTC+9
		TokyoLocation = time.FixedZone("JST", 9*60*60)
	}
}

// DateOnly returns midnight UTC of t's calendar date (in t's own location).
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextMonday returns the Monday strictly after t's calendar date.
// On a Monday this is one week later.
func NextMonday(t time.Time) time.Time {
	days := (8 - int(t.Weekday())) % 7
	if days == 0 {
		days = 7
	}
	return DateOnly(t).AddDate(0, 0, days)
}

// NextWeek returns the Monday and Friday of the trading week following t.
func NextWeek(t time.Time) (monday, friday time.Time) {
	monday = NextMonday(t)
	return monday, monday.AddDate(0, 0, 4)
}

// IsBusinessDay reports whether t falls on a weekday. Exchange holidays are not modelled.
func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PreviousBusinessDay rolls a weekend date back to the preceding Friday.
func PreviousBusinessDay(t time.Time) time.Time {
	for !IsBusinessDay(t) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// DaysBetween returns the whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(DateOnly(b).Sub(DateOnly(a)).Hours() / 24)
}

// TokyoToday returns today's date in Tokyo as midnight UTC.
func TokyoToday() time.Time {
	return DateOnly(time.Now().In(TokyoLocation))
}
