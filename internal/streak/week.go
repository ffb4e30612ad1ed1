package streak

import (
	"fmt"
	"time"
)

// WeekKey returns the ISO 8601 week of t as "2006-W05".
func WeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// ParseWeekKey splits a key produced by WeekKey.
func ParseWeekKey(key string) (year, week int, ok bool) {
	if _, err := fmt.Sscanf(key, "%d-W%d", &year, &week); err != nil {
		return 0, 0, false
	}
	if week < 1 || week > 53 {
		return 0, 0, false
	}
	return year, week, true
}

func IsSameWeek(a, b string) bool {
	return a != "" && a == b
}

// IsNextWeek reports whether next is the ISO week right after prev. Across
// a year boundary prev must be the last ISO week of its year (52 or 53).
func IsNextWeek(prev, next string) bool {
	y1, w1, ok := ParseWeekKey(prev)
	if !ok {
		return false
	}
	y2, w2, ok := ParseWeekKey(next)
	if !ok {
		return false
	}
	if y1 == y2 {
		return w2 == w1+1
	}
	return y2 == y1+1 && w1 == lastISOWeek(y1) && w2 == 1
}

// lastISOWeek returns 52 or 53; Dec 28 always falls in the final ISO week.
func lastISOWeek(year int) int {
	_, week := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return week
}
