package progress

import (
	"math"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/bodymetrics"
	"github.com/2beens/calorietracker/internal/records"
)

const (
	// WeekWindow is how many of the latest entries make up the weekly window.
	WeekWindow = 7
	// maintainToleranceKcal is the daily balance still counted as maintaining
	maintainToleranceKcal = 100
)

// Analyze estimates the weight trend of a user from the recorded days.
// log must be in chronological (insertion) order.
func Analyze(profile accounts.Profile, log []records.Entry) Report {
	bmr := profile.BMR()

	window := log
	if len(log) > WeekWindow {
		window = log[len(log)-WeekWindow:]
	}

	net, days := energyBalance(bmr, window)
	if days == 0 {
		return Report{
			Status:    StatusInsufficientData,
			TotalDays: len(log),
		}
	}

	avg := net / float64(days)
	report := Report{
		Status:          StatusOK,
		Days:            days,
		TotalDays:       len(log),
		AvgDailyBalance: avg,
		WeeklyChangeKg:  avg * float64(days) / bodymetrics.KcalPerKg,
		Trend:           trendOf(avg),
		Alignment:       AlignmentInsufficientHistory,
	}

	overallNet, _ := energyBalance(bmr, log)
	report.OverallChangeKg = overallNet / bodymetrics.KcalPerKg

	if days >= WeekWindow {
		report.Alignment = alignmentOf(profile.Goal, avg)
	}

	return report
}

// energyBalance sums calories consumed minus calories spent over entries.
func energyBalance(bmr float64, entries []records.Entry) (net float64, days int) {
	for _, e := range entries {
		tdee := bodymetrics.TDEE(bmr, bodymetrics.DailyActivityFactor(e.WentToGym))
		net += float64(e.Calories) - tdee
		days++
	}
	return net, days
}

func trendOf(avg float64) Trend {
	switch {
	case avg > 0:
		return TrendSurplus
	case avg < 0:
		return TrendDeficit
	default:
		return TrendMaintained
	}
}

func alignmentOf(goal bodymetrics.Goal, avg float64) Alignment {
	switch goal {
	case bodymetrics.GoalGain:
		if avg > 0 {
			return AlignmentOnTrack
		}
		return AlignmentBelowTarget
	case bodymetrics.GoalLose:
		if avg < 0 {
			return AlignmentOnTrack
		}
		return AlignmentAboveTarget
	default:
		if math.Abs(avg) < maintainToleranceKcal {
			return AlignmentOnTrack
		}
		if avg < 0 {
			return AlignmentBelowTarget
		}
		return AlignmentAboveTarget
	}
}
