package accounts

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/2beens/calorietracker/internal/bodymetrics"
)

const (
	MaxUsernameLength = 15
	MinAge            = 16
	MaxAge            = 175

	profileFieldsCount = 6
)

var (
	ErrDuplicateUsername = errors.New("username already taken")
	ErrNotFound          = errors.New("user not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnderage          = fmt.Errorf("%w: must be at least %d years old", ErrInvalidInput, MinAge)
)

// Profile is the biometric data captured at sign up. It never changes afterwards.
type Profile struct {
	Username string           `json:"username"`
	WeightKg float64          `json:"weightKg"`
	HeightCm float64          `json:"heightCm"`
	Age      int              `json:"age"`
	Sex      bodymetrics.Sex  `json:"sex"`
	Goal     bodymetrics.Goal `json:"goal"`
}

func (p Profile) BMI() float64 {
	return bodymetrics.BMI(p.WeightKg, p.HeightCm)
}

func (p Profile) BMR() float64 {
	return bodymetrics.BMR(p.WeightKg, p.HeightCm, p.Age, p.Sex)
}

// NormalizeUsername returns the identity form of a username:
// trimmed, lowercased and cut to MaxUsernameLength characters.
func NormalizeUsername(username string) string {
	normalized := []rune(strings.ToLower(strings.TrimSpace(username)))
	if len(normalized) > MaxUsernameLength {
		normalized = normalized[:MaxUsernameLength]
	}
	return string(normalized)
}

// ValidateProfile checks the sign up data. Callers at the boundary use it,
// the registry itself trusts its input beyond username uniqueness.
func ValidateProfile(p Profile) error {
	if err := ValidateUsername(p.Username); err != nil {
		return err
	}
	if p.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive", ErrInvalidInput)
	}
	if p.HeightCm <= 0 {
		return fmt.Errorf("%w: height must be positive", ErrInvalidInput)
	}
	if p.Age < MinAge {
		return ErrUnderage
	}
	if p.Age > MaxAge {
		return fmt.Errorf("%w: age %d is not realistic", ErrInvalidInput, p.Age)
	}
	if _, ok := bodymetrics.ParseGoal(string(p.Goal)); !ok {
		return fmt.Errorf("%w: unknown goal %q", ErrInvalidInput, p.Goal)
	}
	return nil
}

// ValidateUsername rejects names that cannot be stored in the registry
// or used as a log file name.
func ValidateUsername(username string) error {
	if username == "" {
		return fmt.Errorf("%w: username is empty", ErrInvalidInput)
	}
	if strings.ContainsAny(username, `,/\`) || username == "." || username == ".." {
		return fmt.Errorf("%w: username %q contains forbidden characters", ErrInvalidInput, username)
	}
	return nil
}

// formatLine renders the profile as a registry file line:
// username,weight,height,age,sex,goal
func formatLine(p Profile) string {
	return strings.Join([]string{
		p.Username,
		FormatDecimal(p.WeightKg),
		FormatDecimal(p.HeightCm),
		strconv.Itoa(p.Age),
		string(p.Sex),
		string(p.Goal),
	}, ",")
}

// lineUsername is the name a registry line claims, whether or not the
// rest of the line parses.
func lineUsername(line string) string {
	username, _, _ := strings.Cut(line, ",")
	return strings.ToLower(strings.TrimSpace(username))
}

// parseLine is permissive: any line not holding a full, well-typed
// record is reported as not ok, to be skipped.
func parseLine(line string) (Profile, bool) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if len(fields) != profileFieldsCount {
		return Profile{}, false
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	username := strings.ToLower(fields[0])
	if username == "" {
		return Profile{}, false
	}
	weight, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return Profile{}, false
	}
	height, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return Profile{}, false
	}
	age, err := strconv.Atoi(fields[3])
	if err != nil {
		return Profile{}, false
	}
	goal, ok := bodymetrics.ParseGoal(fields[5])
	if !ok {
		return Profile{}, false
	}

	return Profile{
		Username: username,
		WeightKg: weight,
		HeightCm: height,
		Age:      age,
		Sex:      bodymetrics.ParseSex(fields[4]),
		Goal:     goal,
	}, true
}

// FormatDecimal writes whole numbers with a trailing ".0" (70 -> "70.0"),
// keeping the registry file in the same shape as existing records.
func FormatDecimal(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
