// Package bodymetrics holds the pure body and energy calculations.
//
// Functions here never fail: invalid biometric inputs (weight, height or
// age <= 0) yield the 0 sentinel, and callers branch on that value.
package bodymetrics

import (
	"strconv"
	"strings"
)

// KcalPerKg is the energy equivalent of one kilogram of body mass.
const KcalPerKg = 7700

// goal adjustment applied on top of TDEE for gain / lose plans
const goalCalorieAdjustment = 500

type Sex string

const (
	SexMale        Sex = "male"
	SexFemale      Sex = "female"
	SexUnspecified Sex = "none"
)

// ParseSex maps anything other than male/female to SexUnspecified.
func ParseSex(s string) Sex {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(SexMale):
		return SexMale
	case string(SexFemale):
		return SexFemale
	default:
		return SexUnspecified
	}
}

type Goal string

const (
	GoalGain     Goal = "gain"
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
)

func ParseGoal(s string) (Goal, bool) {
	switch g := Goal(strings.ToLower(strings.TrimSpace(s))); g {
	case GoalGain, GoalLose, GoalMaintain:
		return g, true
	default:
		return "", false
	}
}

// BMI returns weight / height(m)^2 rounded to one decimal place.
func BMI(weightKg, heightCm float64) float64 {
	if weightKg <= 0 || heightCm <= 0 {
		return 0
	}
	heightM := heightCm / 100
	return Round(weightKg/(heightM*heightM), 1)
}

// Round rounds x to the given number of decimal places the way Python's
// round does: correctly rounded from the exact binary value, ties to even.
func Round(x float64, places int) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(x, 'f', places, 64), 64)
	if err != nil {
		return x
	}
	return rounded
}

// Recommend maps a BMI value to the suggested weight plan.
func Recommend(bmi float64) Goal {
	switch {
	case bmi < 18.5:
		return GoalGain
	case bmi < 25:
		return GoalMaintain
	default:
		return GoalLose
	}
}

// BMR uses the Mifflin-St Jeor equation.
func BMR(weightKg, heightCm float64, age int, sex Sex) float64 {
	if weightKg <= 0 || heightCm <= 0 || age <= 0 {
		return 0
	}

	base := 10*weightKg + 6.25*heightCm - 5*float64(age)
	switch sex {
	case SexMale:
		return base + 5
	case SexFemale:
		return base - 161
	default:
		return base
	}
}

func TDEE(bmr, activityFactor float64) float64 {
	return bmr * activityFactor
}

// ActivityFactorFromDays maps the number of workout days per week
// (declared at sign up) to an activity multiplier.
func ActivityFactorFromDays(days int) float64 {
	switch {
	case days <= 0:
		return 1.2
	case days <= 2:
		return 1.375
	case days <= 5:
		return 1.55
	default:
		return 1.725
	}
}

// DailyActivityFactor is the per-day multiplier used when analyzing
// recorded days. It is a separate scale from ActivityFactorFromDays.
func DailyActivityFactor(wentToGym bool) float64 {
	if wentToGym {
		return 1.55
	}
	return 1.2
}

// DailyCalorieTarget returns the approximate daily intake for the given goal,
// truncated to whole kcal.
func DailyCalorieTarget(bmr, activityFactor float64, goal Goal) int {
	needed := TDEE(bmr, activityFactor)
	switch goal {
	case GoalGain:
		needed += goalCalorieAdjustment
	case GoalLose:
		needed -= goalCalorieAdjustment
	}
	return int(needed)
}
