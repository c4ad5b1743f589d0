package utils

import "time"

func NowUnixSeconds() int64 { return time.Now().Unix() }

func NowUnixMillis() int64 { return time.Now().UnixMilli() }

// ParseDateParam accepts RFC3339 or a plain YYYY-MM-DD date. Empty input
// yields the zero time and no error.
func ParseDateParam(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, s)
}

// EndOfDay moves a date-only value to the last millisecond of that day so
// that inclusive upper bounds behave as users expect.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}
