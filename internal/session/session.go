package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/progress"
	"github.com/2beens/calorietracker/internal/records"
	"github.com/2beens/calorietracker/internal/telemetry/metrics"

	log "github.com/sirupsen/logrus"
)

// errEndOfInput is returned by prompts once the input is exhausted.
var errEndOfInput = errors.New("end of input")

const maxPreallocatedDays = 64

type profileRegistry interface {
	Register(ctx context.Context, profile accounts.Profile) error
	Lookup(ctx context.Context, username string) (accounts.Profile, error)
	Exists(ctx context.Context, username string) bool
	Taken(ctx context.Context, username string) bool
}

type recordsStore interface {
	Append(ctx context.Context, username string, entries []records.Entry) error
	HasLog(ctx context.Context, username string) (bool, error)
}

type progressService interface {
	Progress(ctx context.Context, username string) (*progress.Report, error)
	BMI(ctx context.Context, username string) (*progress.BMISummary, error)
}

// Session is the interactive menu driven over a line based input.
type Session struct {
	in  *bufio.Scanner
	out io.Writer

	registry profileRegistry
	store    recordsStore
	progress progressService
	metrics  *metrics.Manager
}

func New(
	in io.Reader,
	out io.Writer,
	registry profileRegistry,
	store recordsStore,
	progressSvc progressService,
	metricsManager *metrics.Manager,
) *Session {
	return &Session{
		in:       bufio.NewScanner(in),
		out:      out,
		registry: registry,
		store:    store,
		progress: progressSvc,
		metrics:  metricsManager,
	}
}

// Run drives the main menu until the user quits or the input ends.
// accounts.ErrUnderage is returned when a sign up is refused because of age.
func (s *Session) Run(ctx context.Context) error {
	for {
		s.println()
		entered, err := s.prompt("Enter '0' to sign up, '1' to log in, or any key to close this program:\n> ")
		if err != nil {
			return s.finish(err)
		}

		switch strings.TrimSpace(entered) {
		case "0":
			err = s.signUp(ctx)
		case "1":
			err = s.logIn(ctx)
		default:
			s.println("Program Ended")
			return nil
		}

		if err != nil {
			return s.finish(err)
		}
	}
}

func (s *Session) finish(err error) error {
	if errors.Is(err, errEndOfInput) {
		log.Debugln("session: input closed")
		return nil
	}
	return err
}

func (s *Session) logIn(ctx context.Context) error {
	entered, err := s.prompt("Enter your username:\n> ")
	if err != nil {
		return err
	}

	username := accounts.NormalizeUsername(entered)
	if !s.registry.Exists(ctx, username) {
		s.printf("%s does not exist in our database, please enter 0 to sign up\n", username)
		return nil
	}

	if s.metrics != nil {
		s.metrics.CounterLogins.Inc()
	}
	log.Debugf("session: [%s] logged in", username)
	s.printf("Welcome, %s!\n", username)

	for {
		s.println()
		navigate, err := s.prompt("Enter:\n'1' to see your progress\n'2' to see your bmi\n'3' to see your personal information\n'4' to log out\n> ")
		if err != nil {
			return err
		}

		switch strings.TrimSpace(navigate) {
		case "1":
			err = s.showProgress(ctx, username)
		case "2":
			err = s.showBMI(ctx, username)
		case "3":
			err = s.showInfo(ctx, username)
		case "4":
			s.printf("Goodbye, %s!\n", username)
			return nil
		}

		if err != nil {
			return err
		}
	}
}

func (s *Session) showProgress(ctx context.Context, username string) error {
	s.println("Analyzing Progress...")

	hasLog, err := s.store.HasLog(ctx, username)
	if err != nil {
		return fmt.Errorf("check records: %w", err)
	}
	if !hasLog {
		if err := s.recordDays(ctx, username); err != nil {
			return err
		}
		s.printf("Record created successfully!\n\n")
	}

	report, err := s.progress.Progress(ctx, username)
	if err != nil {
		return fmt.Errorf("progress: %w", err)
	}
	profile, err := s.registry.Lookup(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup profile: %w", err)
	}

	if !report.HasData() {
		s.println("Invalid data record... please add recorded days first.")
		return nil
	}

	renderReport(s.out, profile.Goal, report)

	more, err := s.promptYesNo("Would you like to add more days? (yes/no)\n> ", "Invalid entry. Please try again.")
	if err != nil {
		return err
	}
	if more {
		if err := s.recordDays(ctx, username); err != nil {
			return err
		}
		s.printf("New data successfully entered! Re-run to see updated results.\n\n")
	}

	return nil
}

func (s *Session) showBMI(ctx context.Context, username string) error {
	summary, err := s.progress.BMI(ctx, username)
	if err != nil {
		return fmt.Errorf("bmi: %w", err)
	}
	s.printf("Your current BMI is approximately %s.\n", accounts.FormatDecimal(summary.BMI))
	s.printf("It's recommended to %s weight.\n", summary.Recommendation)
	s.printf("Your chosen goal was to %s your weight.\n", summary.Goal)
	return nil
}

func (s *Session) showInfo(ctx context.Context, username string) error {
	profile, err := s.registry.Lookup(ctx, username)
	if err != nil {
		return fmt.Errorf("lookup profile: %w", err)
	}
	s.printf(
		"Username: %s\nWeight: %s kg (initial)\nHeight: %s cm\nAge: %d years\nGender: %s\nGoal: %s\n",
		profile.Username,
		accounts.FormatDecimal(profile.WeightKg),
		accounts.FormatDecimal(profile.HeightCm),
		profile.Age,
		profile.Sex,
		profile.Goal,
	)
	return nil
}

// recordDays asks for a number of days and then for each day's entry,
// appending them all to the user's log at once.
func (s *Session) recordDays(ctx context.Context, username string) error {
	var days int
	for {
		entered, err := s.prompt("How many days did you record calories?\n> ")
		if err != nil {
			return err
		}
		n, ok := parseInt(entered)
		if !ok {
			s.println("Please enter days in whole digits only!")
			continue
		}
		if n <= 0 {
			s.println("Please enter at least one day.")
			continue
		}
		days = n
		break
	}

	entries := make([]records.Entry, 0, min(days, maxPreallocatedDays))
	for i := 0; i < days; i++ {
		s.printf("Day %d:\n", i+1)
		wentToGym, err := s.promptYesNo("Did you go to the gym? (yes/no)\n> ", "Please try again (yes/no).")
		if err != nil {
			return err
		}
		calories, err := s.promptInt("How many calories did you eat?\n> ", "Please enter calories in digits only!")
		if err != nil {
			return err
		}
		entries = append(entries, records.Entry{WentToGym: wentToGym, Calories: calories})
	}

	if err := s.store.Append(ctx, username, entries); err != nil {
		return fmt.Errorf("save records: %w", err)
	}
	return nil
}
