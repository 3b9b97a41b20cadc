package managermas

import (
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// ParseMonth は "YYYY-MM" を解析します。
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return t, nil
}

// ExpandMonths は両端を含む月キーの列を返します。
// from が to より後の場合はエラーにせず空の列を返します。
func ExpandMonths(from, to string) ([]string, error) {
	start, err := ParseMonth(from)
	if err != nil {
		return nil, err
	}
	end, err := ParseMonth(to)
	if err != nil {
		return nil, err
	}
	months := []string{}
	for m := start; !m.After(end); m = m.AddDate(0, 1, 0) {
		months = append(months, m.Format(monthLayout))
	}
	return months, nil
}

// MonthBounds は月の初日と末日を返します。
func MonthBounds(month string) (time.Time, time.Time, error) {
	start, err := ParseMonth(month)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.AddDate(0, 1, -1)
	return start, end, nil
}

// DefaultRange は直近12か月の締め済み月(当月を含まない)の範囲を返します。
func DefaultRange(now time.Time) (from, to string) {
	current := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return current.AddDate(0, -12, 0).Format(monthLayout), current.AddDate(0, -1, 0).Format(monthLayout)
}
