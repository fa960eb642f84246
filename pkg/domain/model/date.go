package model

import (
	"strings"
	"time"
)

// Date is a calendar day stored as "YYYY-MM-DD". The empty string means unset.
type Date string

const (
	dateLayout       = "2006-01-02"
	exportDateLayout = "01/02/2006"
)

// dateLayouts are tried in order. Month-first is preferred for slash dates,
// day-first is only reached when the first field cannot be a month.
var dateLayouts = []string{
	dateLayout,
	"1/2/2006",
	"2/1/2006",
	"2006/1/2",
}

// ParseDate accepts the spreadsheet date formats used by import. An ISO
// timestamp is truncated to its date part.
func ParseDate(raw string) (Date, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	if i := strings.IndexAny(s, "T "); i == len(dateLayout) {
		s = s[:i]
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), true
		}
	}
	return "", false
}

// DateOf returns the calendar day of t in t's location
func DateOf(t time.Time) Date {
	return Date(t.Format(dateLayout))
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d == ""
}

// Time returns midnight UTC of the date
func (d Date) Time() (time.Time, bool) {
	if d == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, string(d))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// AddDays returns the date n days later (earlier for negative n)
func (d Date) AddDays(n int) Date {
	t, ok := d.Time()
	if !ok {
		return d
	}
	return DateOf(t.AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other
func (d Date) Before(other Date) bool {
	return d != "" && other != "" && string(d) < string(other)
}

// ExportString formats the date the way exports present it (MM/DD/YYYY)
func (d Date) ExportString() string {
	t, ok := d.Time()
	if !ok {
		return ""
	}
	return t.Format(exportDateLayout)
}

// String returns the stored form
func (d Date) String() string {
	return string(d)
}
