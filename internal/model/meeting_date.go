package model

import (
	"sort"
	"time"
)

// DateLayout is the storage and display format of meeting dates.
const DateLayout = "02.01.2006"

type MeetingDate struct {
	ID        int64     `json:"id"`
	Date      string    `json:"date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseDate parses a DD.MM.YYYY date.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatDate formats t as DD.MM.YYYY.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ValidDate reports whether s is a well-formed DD.MM.YYYY date.
func ValidDate(s string) bool {
	_, err := ParseDate(s)
	return err == nil
}

// SortDates orders date strings chronologically in place.
// Unparseable values go last in lexical order.
func SortDates(dates []string) {
	sort.SliceStable(dates, func(i, j int) bool { return DateLess(dates[i], dates[j]) })
}

// DateLess orders two date strings chronologically. Unparsable values sort
// last, lexically among themselves.
func DateLess(a, b string) bool {
	ta, errA := ParseDate(a)
	tb, errB := ParseDate(b)
	switch {
	case errA != nil && errB != nil:
		return a < b
	case errA != nil:
		return false
	case errB != nil:
		return true
	}
	return ta.Before(tb)
}
