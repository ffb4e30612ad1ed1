package streak

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestWeekKey(t *testing.T) {
	tests := []struct {
		day  time.Time
		want string
	}{
		{date(2023, time.December, 25), "2023-W52"},
		{date(2024, time.January, 1), "2024-W01"},
		{date(2020, time.December, 28), "2020-W53"},
		{date(2021, time.January, 1), "2020-W53"},
		{date(2021, time.January, 4), "2021-W01"},
		{date(2024, time.March, 6), "2024-W10"},
	}
	for _, tt := range tests {
		if got := WeekKey(tt.day); got != tt.want {
			t.Errorf("WeekKey(%s) = %s, want %s", tt.day.Format("2006-01-02"), got, tt.want)
		}
	}
}

func TestIsNextWeek(t *testing.T) {
	tests := []struct {
		name       string
		prev, next string
		want       bool
	}{
		{"consecutive", "2024-W09", "2024-W10", true},
		{"52 to 1", "2023-W52", "2024-W01", true},
		{"53 to 1", "2020-W53", "2021-W01", true},
		{"skipped week", "2024-W01", "2024-W03", false},
		{"same week", "2024-W05", "2024-W05", false},
		{"year gap", "2022-W52", "2024-W01", false},
		{"early week into new year", "2023-W50", "2024-W01", false},
		{"51 skips 52", "2023-W51", "2024-W01", false},
		{"52 skips 53", "2020-W52", "2021-W01", false},
		{"garbage", "yesterday", "2024-W01", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNextWeek(tt.prev, tt.next); got != tt.want {
				t.Errorf("IsNextWeek(%s, %s) = %v, want %v", tt.prev, tt.next, got, tt.want)
			}
		})
	}
}

func TestIsSameWeek(t *testing.T) {
	if !IsSameWeek(WeekKey(date(2024, time.March, 4)), WeekKey(date(2024, time.March, 10))) {
		t.Error("Expected Monday and Sunday of one ISO week to match")
	}
	if IsSameWeek("", "") {
		t.Error("Expected empty keys not to match")
	}
}
