package progress

import "math"

type Status string

const (
	StatusOK Status = "ok"
	// StatusInsufficientData means there were no recorded days to analyze.
	StatusInsufficientData Status = "insufficient_data"
)

type Trend string

const (
	TrendSurplus    Trend = "surplus"
	TrendDeficit    Trend = "deficit"
	TrendMaintained Trend = "maintained"
)

type Alignment string

const (
	AlignmentOnTrack     Alignment = "on_track"
	AlignmentBelowTarget Alignment = "below_target"
	AlignmentAboveTarget Alignment = "above_target"
	// AlignmentInsufficientHistory is reported while the weekly window holds less than a week.
	AlignmentInsufficientHistory Alignment = "insufficient_history"
)

// Report is the outcome of a progress analysis. When Status is
// StatusInsufficientData, only Status and TotalDays are meaningful.
type Report struct {
	Status Status `json:"status"`
	// Days is the number of entries in the weekly window.
	Days int `json:"days"`
	// TotalDays is the number of entries in the whole log.
	TotalDays       int       `json:"totalDays"`
	AvgDailyBalance float64   `json:"avgDailyBalance"`
	WeeklyChangeKg  float64   `json:"weeklyChangeKg"`
	Trend           Trend     `json:"trend,omitempty"`
	OverallChangeKg float64   `json:"overallChangeKg"`
	Alignment       Alignment `json:"alignment,omitempty"`
}

func (r *Report) HasData() bool {
	return r.Status == StatusOK
}

// GainedKg is the weekly gain, 0 unless the trend is a surplus.
func (r *Report) GainedKg() float64 {
	if r.Trend != TrendSurplus {
		return 0
	}
	return r.WeeklyChangeKg
}

// LostKg is the weekly loss as a positive number, 0 unless the trend is a deficit.
func (r *Report) LostKg() float64 {
	if r.Trend != TrendDeficit {
		return 0
	}
	return math.Abs(r.WeeklyChangeKg)
}
