package streak

import (
	"fmt"
	"time"

	"eco-loop-rewards-go/internal/models"
	"eco-loop-rewards-go/internal/rules"
)

// Settings are the streak reward parameters.
type Settings struct {
	MilestoneWeeks  int
	BasePoints      int64
	MilestonePoints int64
}

// NewSettings takes the point values from the rule table.
func NewSettings(cfg models.StreakSettings) Settings {
	base, _ := rules.Lookup(rules.WeeklyStreak)
	milestone, _ := rules.Lookup(rules.StreakMilestoneBonus)
	weeks := cfg.MilestoneWeeks
	if weeks <= 0 {
		weeks = models.DefaultProgramConfig().Streak.MilestoneWeeks
	}
	return Settings{
		MilestoneWeeks:  weeks,
		BasePoints:      base.Points,
		MilestonePoints: milestone.Points,
	}
}

// Outcome is the result of applying one qualifying action to a streak.
type Outcome struct {
	State            models.StreakRecord
	PointsAwarded    int64
	BaseAwarded      bool
	MilestoneAwarded bool
	Incremented      bool
	Reset            bool
	Message          string
}

// Advance applies an action taken at now to state. It has no side effects;
// when nothing changes (same ISO week) Outcome.State equals state.
func Advance(state models.StreakRecord, now time.Time, settings Settings) Outcome {
	weekKey := WeekKey(now)
	next := state
	next.LastActionDate = now
	next.LastWeekKey = weekKey

	out := Outcome{}
	switch {
	case state.LastWeekKey == "" && state.LastActionDate.IsZero():
		next.CurrentCount = 1
		out.Message = fmt.Sprintf("Streak started! Week 1 of your sustainability journey. +%d EcoPoints", settings.BasePoints)

	case IsSameWeek(state.LastWeekKey, weekKey):
		return Outcome{
			State:   state,
			Message: fmt.Sprintf("Keep it up! You're on a %d-week sustainability streak!", state.CurrentCount),
		}

	case IsNextWeek(state.LastWeekKey, weekKey):
		next.CurrentCount = state.CurrentCount + 1
		if next.CurrentCount == settings.MilestoneWeeks && state.MilestoneReached < settings.MilestoneWeeks {
			next.MilestoneReached = settings.MilestoneWeeks
			out.MilestoneAwarded = true
			out.PointsAwarded += settings.MilestonePoints
			out.Message = fmt.Sprintf("MILESTONE! %d consecutive weeks! +%d bonus EcoPoints. Streak: %d weeks",
				settings.MilestoneWeeks, settings.MilestonePoints, next.CurrentCount)
		} else {
			out.Message = fmt.Sprintf("Streak extended! You're on a %d-week sustainability streak! +%d EcoPoints",
				next.CurrentCount, settings.BasePoints)
		}

	default:
		next.CurrentCount = 1
		out.Reset = true
		out.Message = fmt.Sprintf("Streak reset. You're starting fresh! +%d EcoPoints", settings.BasePoints)
	}

	if next.CurrentCount > next.LongestCount {
		next.LongestCount = next.CurrentCount
	}
	out.State = next
	out.Incremented = true
	out.BaseAwarded = true
	out.PointsAwarded += settings.BasePoints
	return out
}
