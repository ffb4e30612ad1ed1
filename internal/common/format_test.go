package common

import "testing"

func TestFormatPoints(t *testing.T) {
	cases := map[int64]string{
		0:        "0",
		999:      "999",
		1000:     "1,000",
		-1234567: "-1,234,567",
	}
	for in, want := range cases {
		if got := FormatPoints(in); got != want {
			t.Errorf("FormatPoints(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatDeltaAndShortId(t *testing.T) {
	if got := FormatDelta(10); got != "+10" {
		t.Errorf("Expected +10, got %s", got)
	}
	if got := FormatDelta(-30); got != "-30" {
		t.Errorf("Expected -30, got %s", got)
	}
	if got := ShortId(""); got != "none" {
		t.Errorf("Expected none, got %s", got)
	}
	if got := ShortId("WEEKLY_STREAK_2024-W05_user1"); got != "WEEKLY_STREA..." {
		t.Errorf("Unexpected short id %s", got)
	}
}
