package streak

import (
	"testing"
	"time"

	"eco-loop-rewards-go/internal/models"
)

func testSettings() Settings {
	return NewSettings(models.StreakSettings{MilestoneWeeks: 10})
}

func TestAdvance_FirstAction(t *testing.T) {
	out := Advance(models.StreakRecord{UserId: "u"}, date(2024, time.March, 6), testSettings())

	if !out.Incremented || out.State.CurrentCount != 1 || out.PointsAwarded != 5 {
		t.Errorf("Unexpected outcome %+v", out)
	}
	if out.State.LastWeekKey != "2024-W10" || out.State.LongestCount != 1 {
		t.Errorf("Unexpected state %+v", out.State)
	}
}

func TestAdvance_SameWeekNoChange(t *testing.T) {
	state := models.StreakRecord{UserId: "u", LastActionDate: date(2024, time.March, 4), LastWeekKey: "2024-W10", CurrentCount: 3, LongestCount: 3}
	out := Advance(state, date(2024, time.March, 8), testSettings())

	if out.Incremented || out.PointsAwarded != 0 {
		t.Errorf("Expected no change, got %+v", out)
	}
	if out.State != state {
		t.Errorf("Expected state to be unchanged, got %+v", out.State)
	}
}

func TestAdvance_MilestoneOnce(t *testing.T) {
	settings := testSettings()
	state := models.StreakRecord{UserId: "u", LastActionDate: date(2024, time.March, 6), LastWeekKey: "2024-W10", CurrentCount: 9, LongestCount: 9}

	out := Advance(state, date(2024, time.March, 13), settings)
	if out.State.CurrentCount != 10 || out.PointsAwarded != 105 || !out.MilestoneAwarded {
		t.Fatalf("Expected milestone at 10 with 105 points, got %+v", out)
	}
	if out.State.MilestoneReached != 10 {
		t.Errorf("Expected milestoneReached 10, got %d", out.State.MilestoneReached)
	}

	out = Advance(out.State, date(2024, time.March, 20), settings)
	if out.State.CurrentCount != 11 || out.PointsAwarded != 5 || out.MilestoneAwarded {
		t.Errorf("Expected week 11 with 5 points, got %+v", out)
	}
}

func TestAdvance_ResetKeepsLongest(t *testing.T) {
	state := models.StreakRecord{UserId: "u", LastActionDate: date(2024, time.March, 6), LastWeekKey: "2024-W10", CurrentCount: 4, LongestCount: 6, MilestoneReached: 10}
	out := Advance(state, date(2024, time.March, 27), testSettings())

	if !out.Reset || out.State.CurrentCount != 1 || out.PointsAwarded != 5 {
		t.Errorf("Expected reset to 1 with 5 points, got %+v", out)
	}
	if out.State.LongestCount != 6 || out.State.MilestoneReached != 10 {
		t.Errorf("Expected longest and milestone kept, got %+v", out.State)
	}
}

func TestAdvance_AcrossIsoYear(t *testing.T) {
	state := models.StreakRecord{UserId: "u", LastActionDate: date(2020, time.December, 28), LastWeekKey: "2020-W53", CurrentCount: 2, LongestCount: 2}
	out := Advance(state, date(2021, time.January, 4), testSettings())

	if out.Reset || out.State.CurrentCount != 3 {
		t.Errorf("Expected W53 -> W01 to extend the streak, got %+v", out)
	}
}

func TestAdvance_SkippedWeekAcrossIsoYearResets(t *testing.T) {
	tests := []struct {
		name  string
		last  time.Time
		today time.Time
	}{
		{"2023-W51 to 2024-W01", date(2023, time.December, 18), date(2024, time.January, 2)},
		{"2020-W52 to 2021-W01", date(2020, time.December, 21), date(2021, time.January, 5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := models.StreakRecord{UserId: "u", LastActionDate: tt.last, LastWeekKey: WeekKey(tt.last), CurrentCount: 4, LongestCount: 4}
			out := Advance(state, tt.today, testSettings())

			if !out.Reset || out.State.CurrentCount != 1 {
				t.Errorf("Expected a missed week to reset the streak, got %+v", out)
			}
			if out.State.LongestCount != 4 {
				t.Errorf("Expected longest 4 kept, got %d", out.State.LongestCount)
			}
		})
	}
}
