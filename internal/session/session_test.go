package session_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/bodymetrics"
	"github.com/2beens/calorietracker/internal/progress"
	"github.com/2beens/calorietracker/internal/records"
	"github.com/2beens/calorietracker/internal/session"
	"github.com/2beens/calorietracker/internal/telemetry/metrics"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type testEnv struct {
	dataDir  string
	registry *accounts.Registry
	store    *records.Store
	metrics  *metrics.Manager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dataDir := t.TempDir()
	m := metrics.NewTestManager()

	registry, err := accounts.NewRegistry(filepath.Join(dataDir, "database.txt"), m)
	require.NoError(t, err)
	store, err := records.NewStore(dataDir, m)
	require.NoError(t, err)

	return &testEnv{
		dataDir:  dataDir,
		registry: registry,
		store:    store,
		metrics:  m,
	}
}

// run feeds the scripted lines to a new session and returns its output.
func (e *testEnv) run(t *testing.T, lines ...string) (string, error) {
	t.Helper()
	out := &strings.Builder{}
	s := session.New(
		strings.NewReader(strings.Join(lines, "\n")+"\n"),
		out,
		e.registry,
		e.store,
		progress.NewService(e.registry, e.store, e.metrics),
		e.metrics,
	)
	err := s.Run(context.Background())
	return out.String(), err
}

func (e *testEnv) registerJohn(t *testing.T, goal bodymetrics.Goal) {
	t.Helper()
	require.NoError(t, e.registry.Register(context.Background(), accounts.Profile{
		Username: "john",
		WeightKg: 70,
		HeightCm: 160,
		Age:      21,
		Sex:      bodymetrics.SexMale,
		Goal:     goal,
	}))
}

func TestSession_SignUp(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t,
		"0",
		"  John ",
		"abc", "160", // invalid weight, re-prompted
		"70", "160",
		"twenty", // invalid age
		"200",    // unrealistic age
		"21",
		"Male",
		"yes",
		"bulk", // unknown goal, re-prompted
		"maintain",
		"often", // invalid workout days
		"3",
		"x",
	)
	require.NoError(t, err)

	assert.Contains(t, output, "Please enter your weight and height in digits only.")
	assert.Contains(t, output, "Please enter your age in years only.")
	assert.Contains(t, output, "Sign up failed: Please enter a valid age!")
	assert.Contains(t, output, "Username: john \nWeight: 70.0 kg \nHeight: 160.0 cm \nAge: 21 years \nSex: male\n")
	assert.Contains(t, output, "Your BMI is approximately, 27.3.")
	assert.Contains(t, output, "It's recommended to lose weight.")
	assert.Contains(t, output, "Please enter days in whole digits only!")
	assert.Contains(t, output, "Congrats! You have successfully signed up.")
	assert.Contains(t, output, "You need to eat approximately 2480 calories a day.")
	assert.True(t, strings.HasSuffix(output, "Program Ended\n"))

	content, err := os.ReadFile(filepath.Join(env.dataDir, "database.txt"))
	require.NoError(t, err)
	assert.Equal(t, "\njohn,70.0,160.0,21,male,maintain", string(content))

	profile, err := env.registry.Lookup(context.Background(), "john")
	require.NoError(t, err)
	assert.Equal(t, bodymetrics.GoalMaintain, profile.Goal)
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.CounterSignUps))
}

func TestSession_SignUp_RejectedVerificationStartsOver(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t,
		"0",
		"john", "70", "160", "21", "male", "no",
		"jane", "60", "170", "30", "whatever", "yes", "gain", "0",
	)
	require.NoError(t, err)

	assert.Contains(t, output, "Sex: none\n")
	assert.False(t, env.registry.Exists(context.Background(), "john"))
	assert.True(t, env.registry.Exists(context.Background(), "jane"))
}

func TestSession_SignUp_UsernameTaken(t *testing.T) {
	env := newTestEnv(t)
	env.registerJohn(t, bodymetrics.GoalGain)

	output, err := env.run(t, "0", "JOHN", "q")
	require.NoError(t, err)
	assert.Contains(t, output, "Username taken, please log in or choose another username!")
	assert.Equal(t, 1, env.registry.Count())
}

func TestSession_SignUp_NameOfMalformedRecordTaken(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, os.WriteFile(filepath.Join(env.dataDir, "database.txt"), []byte("\njohn,70.0,160.0,21,male,bulk"), 0o644))

	output, err := env.run(t, "0", "John", "1", "john", "q")
	require.NoError(t, err)
	assert.Contains(t, output, "Username taken, please log in or choose another username!")
	assert.Contains(t, output, "john does not exist in our database, please enter 0 to sign up")

	content, err := os.ReadFile(filepath.Join(env.dataDir, "database.txt"))
	require.NoError(t, err)
	assert.Equal(t, "\njohn,70.0,160.0,21,male,bulk", string(content))
}

func TestSession_SignUp_InvalidUsername(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "0", "../etc", "q")
	require.NoError(t, err)
	assert.Contains(t, output, "Sign up failed: Please enter a valid username!")
	assert.Equal(t, 0, env.registry.Count())
}

func TestSession_SignUp_Underage(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "0", "kid", "50", "150", "15")
	require.ErrorIs(t, err, accounts.ErrUnderage)
	assert.Contains(t, output, "Sign up failed. You need to be at least 16 to sign up!")
	assert.False(t, env.registry.Exists(context.Background(), "kid"))
}

func TestSession_LogIn_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	output, err := env.run(t, "1", "nobody", "q")
	require.NoError(t, err)
	assert.Contains(t, output, "nobody does not exist in our database, please enter 0 to sign up")
	assert.Equal(t, float64(0), testutil.ToFloat64(env.metrics.CounterLogins))
}

func TestSession_Progress_FullWeek(t *testing.T) {
	env := newTestEnv(t)
	env.registerJohn(t, bodymetrics.GoalMaintain)
	require.NoError(t, env.store.Append(context.Background(), "john", repeatEntry(records.Entry{Calories: 2000}, 7)))

	output, err := env.run(t, "1", "John", "1", "maybe", "no", "4", "q")
	require.NoError(t, err)

	assert.Contains(t, output, "Welcome, john!")
	assert.Contains(t, output, "Analyzing Progress...")
	assert.Contains(t, output, "Calorie Surplus: +80 kcal/day --> Gained = 0.07 kg")
	assert.Contains(t, output, "Overall change since sign up: +0.07 kg")
	assert.Contains(t, output, "You're on track to maintaining weight. Good Job!")
	assert.Contains(t, output, "Invalid entry. Please try again.")
	assert.Contains(t, output, "Goodbye, john!")
	assert.Equal(t, float64(1), testutil.ToFloat64(env.metrics.CounterLogins))
}

func TestSession_Progress_DeficitShortHistory(t *testing.T) {
	env := newTestEnv(t)
	env.registerJohn(t, bodymetrics.GoalLose)
	require.NoError(t, env.store.Append(context.Background(), "john",
		repeatEntry(records.Entry{WentToGym: true, Calories: 2000}, 3)))

	output, err := env.run(t, "1", "john", "1", "no", "4", "q")
	require.NoError(t, err)

	assert.Contains(t, output, "Calorie Deficit: -480 kcal/day --> Lost = 0.19 kg")
	assert.Contains(t, output, "Overall change since sign up: -0.19 kg")
	assert.Contains(t, output, "Keep recording more days for higher accuracy.")
}

func TestSession_Progress_CreatesLogFirst(t *testing.T) {
	env := newTestEnv(t)
	env.registerJohn(t, bodymetrics.GoalMaintain)

	output, err := env.run(t,
		"1", "john", "1",
		"0", "2", // at least one day, then two
		"y", "yes", "lots", "2480",
		"no", "1920",
		"yes", // add more days
		"1", "no", "2000",
		"4", "q",
	)
	require.NoError(t, err)

	assert.Contains(t, output, "Please enter at least one day.")
	assert.Contains(t, output, "Please try again (yes/no).")
	assert.Contains(t, output, "Please enter calories in digits only!")
	assert.Contains(t, output, "Record created successfully!")
	assert.Contains(t, output, "\nWeight Maintained")
	assert.Contains(t, output, "Overall change since sign up: 0.0 kg")
	assert.Contains(t, output, "New data successfully entered! Re-run to see updated results.")

	content, err := os.ReadFile(filepath.Join(env.dataDir, "john.txt"))
	require.NoError(t, err)
	assert.Equal(t, "yes,2480\nno,1920\nno,2000\n", string(content))
}

func TestSession_Progress_OnlyMalformedLines(t *testing.T) {
	env := newTestEnv(t)
	env.registerJohn(t, bodymetrics.GoalGain)
	require.NoError(t, os.WriteFile(filepath.Join(env.dataDir, "john.txt"), []byte("garbage\nyes;2000\n"), 0o644))

	output, err := env.run(t, "1", "john", "1", "4", "q")
	require.NoError(t, err)
	assert.Contains(t, output, "Invalid data record... please add recorded days first.")
	assert.NotContains(t, output, "Would you like to add more days?")
}

func TestSession_BMIAndInfo(t *testing.T) {
	env := newTestEnv(t)
	env.registerJohn(t, bodymetrics.GoalGain)

	output, err := env.run(t, "1", "john", "2", "3", "9", "4", "q")
	require.NoError(t, err)

	assert.Contains(t, output, "Your current BMI is approximately 27.3.")
	assert.Contains(t, output, "It's recommended to lose weight.")
	assert.Contains(t, output, "Your chosen goal was to gain your weight.")
	assert.Contains(t, output, "Username: john\nWeight: 70.0 kg (initial)\nHeight: 160.0 cm\nAge: 21 years\nGender: male\nGoal: gain\n")
}

func TestSession_EndOfInput(t *testing.T) {
	env := newTestEnv(t)
	env.registerJohn(t, bodymetrics.GoalGain)

	// input ends in the middle of the logged-in menu
	output, err := env.run(t, "1", "john")
	require.NoError(t, err)
	assert.Contains(t, output, "'4' to log out")

	out := &strings.Builder{}
	s := session.New(strings.NewReader(""), out, env.registry, env.store, progress.NewService(env.registry, env.store, nil), nil)
	require.NoError(t, s.Run(context.Background()))
}

func repeatEntry(e records.Entry, n int) []records.Entry {
	entries := make([]records.Entry, n)
	for i := range entries {
		entries[i] = e
	}
	return entries
}
