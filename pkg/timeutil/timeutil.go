// Package timeutil provides timezone utilities for the school's local time.
// Leaderboard periods (this week, this month) and exported dates are computed
// in the school timezone, which defaults to Indochina Time (UTC+7, no DST).
package timeutil

import (
	"fmt"
	"sync"
	"time"
)

// SchoolTZ is the default school timezone (UTC+7, no DST).
var SchoolTZ = time.FixedZone("Asia/Ho_Chi_Minh", 7*60*60)

var (
	mu  sync.RWMutex
	loc = SchoolTZ
)

// SetLocation overrides the school timezone. It accepts an IANA name such as
// "Asia/Ho_Chi_Minh"; an empty name restores the default.
func SetLocation(name string) error {
	l := SchoolTZ
	if name != "" && name != SchoolTZ.String() {
		loaded, err := time.LoadLocation(name)
		if err != nil {
			return fmt.Errorf("timeutil: load location %q: %w", name, err)
		}
		l = loaded
	}
	mu.Lock()
	loc = l
	mu.Unlock()
	return nil
}

// Location returns the current school timezone.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return loc
}

// Now returns the current time in the school timezone.
func Now() time.Time {
	return time.Now().In(Location())
}

// ToLocal converts a time to the school timezone.
func ToLocal(t time.Time) time.Time {
	return t.In(Location())
}

// Date creates midnight of the given date in the school timezone.
func Date(year, month, day int) time.Time {
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, Location())
}

// StartOfDay returns 00:00:00 of t's day in the school timezone.
func StartOfDay(t time.Time) time.Time {
	l := ToLocal(t)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, l.Location())
}

// StartOfWeek returns Monday 00:00:00 of t's week in the school timezone.
func StartOfWeek(t time.Time) time.Time {
	l := ToLocal(t)
	weekday := int(l.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	return StartOfDay(l.AddDate(0, 0, -(weekday - 1)))
}

// StartOfMonth returns the first day of t's month in the school timezone.
func StartOfMonth(t time.Time) time.Time {
	l := ToLocal(t)
	return time.Date(l.Year(), l.Month(), 1, 0, 0, 0, 0, l.Location())
}

// WeekBounds returns [Monday 00:00, next Monday 00:00) around t.
func WeekBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfWeek(t)
	return start, start.AddDate(0, 0, 7)
}

// MonthBounds returns [first of month, first of next month) around t.
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := StartOfMonth(t)
	return start, start.AddDate(0, 1, 0)
}

// IsSameDay reports whether both instants fall on the same school day.
func IsSameDay(t1, t2 time.Time) bool {
	a, b := ToLocal(t1), ToLocal(t2)
	return a.Year() == b.Year() && a.YearDay() == b.YearDay()
}

// Common layouts.
const (
	DateLayout     = "02/01/2006"
	DateTimeLayout = "02/01/2006 15:04"
)

// FormatDate formats t as dd/mm/yyyy in the school timezone.
func FormatDate(t time.Time) string {
	return ToLocal(t).Format(DateLayout)
}

// FormatDateTime formats t as dd/mm/yyyy hh:mm in the school timezone.
func FormatDateTime(t time.Time) string {
	return ToLocal(t).Format(DateTimeLayout)
}

// ParseDate parses a dd/mm/yyyy date in the school timezone.
func ParseDate(value string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, value, Location())
}
