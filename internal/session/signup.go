package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/bodymetrics"
	"github.com/2beens/calorietracker/internal/progress"
	"github.com/2beens/calorietracker/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

func (s *Session) signUp(ctx context.Context) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "session.sign_up")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	for {
		profile, verified, err := s.askProfile(ctx)
		if err != nil {
			return err
		}
		if profile == nil {
			// username taken or unusable, back to the main menu
			return nil
		}
		if !verified {
			continue
		}
		span.SetAttributes(attribute.String("username", profile.Username))

		bmi := profile.BMI()
		s.printf("Your BMI is approximately, %s.\n", accounts.FormatDecimal(bmi))
		s.printf("It's recommended to %s weight.\n", bodymetrics.Recommend(bmi))

		for {
			entered, err := s.prompt("Enter your weight plan goal (gain/lose/maintain):\n> ")
			if err != nil {
				return err
			}
			if goal, ok := bodymetrics.ParseGoal(entered); ok {
				profile.Goal = goal
				break
			}
		}

		if err := accounts.ValidateProfile(*profile); err != nil {
			return fmt.Errorf("validate profile: %w", err)
		}
		if err := s.registry.Register(ctx, *profile); err != nil {
			if errors.Is(err, accounts.ErrDuplicateUsername) {
				s.println("Username taken, please log in or choose another username!")
				return nil
			}
			return fmt.Errorf("register: %w", err)
		}

		workoutDays, err := s.promptInt("Enter days per week you work out:\n> ", "Please enter days in whole digits only!")
		if err != nil {
			return err
		}

		plan := progress.SignUpPlan(*profile, workoutDays)
		log.Debugf("session: [%s] signed up, daily target %d kcal", profile.Username, plan.DailyCalorieNeeds)

		s.println("Congrats! You have successfully signed up.")
		s.printf("You need to eat approximately %d calories a day. Keep recording calorie intake and workout days.\n", plan.DailyCalorieNeeds)
		return nil
	}
}

// askProfile collects the personal details of a new user. A nil profile means
// the sign up should not go on; verified is false when the user rejected the
// entered details.
func (s *Session) askProfile(ctx context.Context) (_ *accounts.Profile, verified bool, err error) {
	entered, err := s.prompt("Enter Username:\n> ")
	if err != nil {
		return nil, false, err
	}
	username := accounts.NormalizeUsername(entered)
	if s.registry.Taken(ctx, username) {
		s.println("Username taken, please log in or choose another username!")
		return nil, false, nil
	}
	if err := accounts.ValidateUsername(username); err != nil {
		log.Debugf("session: rejected username [%s]: %s", username, err)
		s.println("Sign up failed: Please enter a valid username!")
		return nil, false, nil
	}

	var weight, height float64
	for {
		weightInput, err := s.prompt("Enter weight in kg:\n> ")
		if err != nil {
			return nil, false, err
		}
		heightInput, err := s.prompt("Enter height in cm:\n> ")
		if err != nil {
			return nil, false, err
		}
		w, okWeight := parsePositive(weightInput)
		h, okHeight := parsePositive(heightInput)
		if okWeight && okHeight {
			weight, height = w, h
			break
		}
		s.println("Please enter your weight and height in digits only.")
	}

	var age int
	for {
		entered, err := s.prompt("Enter age in years:\n> ")
		if err != nil {
			return nil, false, err
		}
		n, ok := parseInt(entered)
		switch {
		case !ok:
			s.println("Please enter your age in years only.")
			continue
		case n < accounts.MinAge:
			s.printf("Sign up failed. You need to be at least %d to sign up!\n", accounts.MinAge)
			return nil, false, accounts.ErrUnderage
		case n > accounts.MaxAge:
			s.println("Sign up failed: Please enter a valid age!")
			continue
		}
		age = n
		break
	}

	sexInput, err := s.prompt("Enter your biological sex (male/female for accuracy) or\nEnter 'none' if other or prefer not to specify:\n> ")
	if err != nil {
		return nil, false, err
	}
	sex := bodymetrics.ParseSex(sexInput)

	verify, err := s.prompt(fmt.Sprintf(
		"\nPlease verify the information you have provided by entering 'yes' or 'no':\nUsername: %s \nWeight: %s kg \nHeight: %s cm \nAge: %d years \nSex: %s\n> ",
		username, accounts.FormatDecimal(weight), accounts.FormatDecimal(height), age, sex,
	))
	if err != nil {
		return nil, false, err
	}

	profile := &accounts.Profile{
		Username: username,
		WeightKg: weight,
		HeightCm: height,
		Age:      age,
		Sex:      sex,
	}
	return profile, strings.ToLower(strings.TrimSpace(verify)) == "yes", nil
}
