package mappers

import (
	"strings"
	"time"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"02-01-2006",
}

var monthLayouts = []string{
	"2006-01",
	"2006/01",
	"01/2006",
	"01-2006",
}

// ParseDate はシートで見かける日付表記を解析します。
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseMonth は月または日付の表記を解析し、その月の1日を返します。
func ParseMonth(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, ok := ParseDate(s); ok {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// NormalizeMonth は解析できる月表記を "YYYY-MM" に揃えます。解析できない場合は元の文字列のままです。
func NormalizeMonth(s string) string {
	if t, ok := ParseMonth(s); ok {
		return t.Format("2006-01")
	}
	return strings.TrimSpace(s)
}

// NormalizeDate は解析できる日付を "YYYY-MM-DD" に揃えます。
func NormalizeDate(s string) string {
	if t, ok := ParseDate(s); ok {
		return t.Format("2006-01-02")
	}
	return strings.TrimSpace(s)
}
