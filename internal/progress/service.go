package progress

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/bodymetrics"
	"github.com/2beens/calorietracker/internal/records"
	"github.com/2beens/calorietracker/internal/telemetry/metrics"
	"github.com/2beens/calorietracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=progress_test

type profileRepo interface {
	Lookup(ctx context.Context, username string) (accounts.Profile, error)
}

type recordsRepo interface {
	Load(ctx context.Context, username string) ([]records.Entry, error)
}

type Service struct {
	profiles profileRepo
	records  recordsRepo
	metrics  *metrics.Manager
}

func NewService(profiles profileRepo, records recordsRepo, metricsManager *metrics.Manager) *Service {
	return &Service{
		profiles: profiles,
		records:  records,
		metrics:  metricsManager,
	}
}

// Progress loads the user's profile and log and analyzes them.
// Unknown users yield accounts.ErrNotFound.
func (s *Service) Progress(ctx context.Context, username string) (_ *Report, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.progress")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("username", username))

	defer func(begin time.Time) {
		if s.metrics != nil {
			s.metrics.HistAnalysisDuration.Observe(time.Since(begin).Seconds())
		}
	}(time.Now())

	profile, err := s.profiles.Lookup(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	entries, err := s.records.Load(ctx, profile.Username)
	if err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}

	report := Analyze(profile, entries)
	span.SetAttributes(
		attribute.String("status", string(report.Status)),
		attribute.Int("days", report.Days),
	)
	if s.metrics != nil {
		s.metrics.CounterAnalyses.WithLabelValues(string(report.Status), string(report.Alignment)).Inc()
	}

	log.Debugf("progress: [%s] analyzed %d/%d days: %s", profile.Username, report.Days, report.TotalDays, report.Status)

	return &report, nil
}

type BMISummary struct {
	BMI            float64          `json:"bmi"`
	Recommendation bodymetrics.Goal `json:"recommendation"`
	Goal           bodymetrics.Goal `json:"goal"`
}

// BMI reports the BMI computed from the sign up data, the
// recommended plan for it, and the plan the user chose.
func (s *Service) BMI(ctx context.Context, username string) (_ *BMISummary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.bmi")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	profile, err := s.profiles.Lookup(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	bmi := profile.BMI()
	return &BMISummary{
		BMI:            bmi,
		Recommendation: bodymetrics.Recommend(bmi),
		Goal:           profile.Goal,
	}, nil
}

// Plan is what a user gets to see right after signing up.
type Plan struct {
	BMI               float64          `json:"bmi"`
	Recommendation    bodymetrics.Goal `json:"recommendation"`
	BMR               float64          `json:"bmr"`
	ActivityFactor    float64          `json:"activityFactor"`
	DailyCalorieNeeds int              `json:"dailyCalorieNeeds"`
}

// SignUpPlan uses the declared weekly workout days, not the daily gym flags.
func SignUpPlan(profile accounts.Profile, workoutDaysPerWeek int) Plan {
	bmi := profile.BMI()
	bmr := profile.BMR()
	activityFactor := bodymetrics.ActivityFactorFromDays(workoutDaysPerWeek)
	return Plan{
		BMI:               bmi,
		Recommendation:    bodymetrics.Recommend(bmi),
		BMR:               bmr,
		ActivityFactor:    activityFactor,
		DailyCalorieNeeds: bodymetrics.DailyCalorieTarget(bmr, activityFactor, profile.Goal),
	}
}
