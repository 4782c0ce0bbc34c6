package session

import (
	"fmt"
	"io"
	"math"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/bodymetrics"
	"github.com/2beens/calorietracker/internal/progress"
)

// renderReport prints an analyzed report. The report must hold data.
func renderReport(out io.Writer, goal bodymetrics.Goal, report *progress.Report) {
	_, _ = fmt.Fprintln(out, "\nWeekly Progress:")
	switch report.Trend {
	case progress.TrendSurplus:
		_, _ = fmt.Fprintf(out, "Calorie Surplus: +%d kcal/day --> Gained = %s kg\n",
			roundKcal(report.AvgDailyBalance), formatKg(report.GainedKg()))
	case progress.TrendDeficit:
		_, _ = fmt.Fprintf(out, "Calorie Deficit: %d kcal/day --> Lost = %s kg\n",
			roundKcal(report.AvgDailyBalance), formatKg(report.LostKg()))
	default:
		_, _ = fmt.Fprintln(out, "\nWeight Maintained")
	}

	overall := formatKg(report.OverallChangeKg)
	if report.OverallChangeKg > 0 {
		overall = "+" + overall
	}
	_, _ = fmt.Fprintf(out, "Overall change since sign up: %s kg\n", overall)

	_, _ = fmt.Fprintln(out)
	_, _ = fmt.Fprintln(out, alignmentMessage(goal, report.Alignment))
	_, _ = fmt.Fprintln(out)
}

func alignmentMessage(goal bodymetrics.Goal, alignment progress.Alignment) string {
	switch alignment {
	case progress.AlignmentOnTrack:
		switch goal {
		case bodymetrics.GoalGain:
			return "You're on track to gaining weight. Good Job!"
		case bodymetrics.GoalLose:
			return "You're on track to losing weight. Good Job!"
		default:
			return "You're on track to maintaining weight. Good Job!"
		}
	case progress.AlignmentBelowTarget:
		return "You're below target. Try increasing calorie intake."
	case progress.AlignmentAboveTarget:
		return "You're above target. Try decreasing calorie intake."
	default:
		return "Keep recording more days for higher accuracy."
	}
}

func roundKcal(kcal float64) int {
	return int(math.RoundToEven(kcal))
}

// formatKg rounds to two decimals.
func formatKg(kg float64) string {
	return accounts.FormatDecimal(bodymetrics.Round(kg, 2))
}
