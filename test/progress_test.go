package test

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/2beens/calorietracker/internal/accounts"
	"github.com/2beens/calorietracker/internal/bodymetrics"
	"github.com/2beens/calorietracker/internal/progress"
)

func (s *IntegrationTestSuite) getJSON(path string, target any) int {
	resp, err := s.httpClient.Get(serverEndpoint + path)
	s.Require().NoError(err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if resp.StatusCode == http.StatusOK && target != nil {
		s.Require().NoError(json.Unmarshal(body, target))
	}
	return resp.StatusCode
}

func (s *IntegrationTestSuite) TestSignUpRecordAndQuery() {
	output := s.runSession(
		"0", "Maria", "60", "165", "30", "female", "yes", "lose", "2",
		"q",
	)
	s.Contains(output, "Congrats! You have successfully signed up.")

	registryContent, err := os.ReadFile(s.registryPath())
	s.Require().NoError(err)
	s.Contains(string(registryContent), "\nmaria,60.0,165.0,30,female,lose")

	var profile accounts.Profile
	s.Equal(http.StatusOK, s.getJSON("/users/maria/profile", &profile))
	s.Equal(bodymetrics.SexFemale, profile.Sex)
	s.Equal(bodymetrics.GoalLose, profile.Goal)

	// no log yet
	var report progress.Report
	s.Equal(http.StatusOK, s.getJSON("/users/maria/progress", &report))
	s.Equal(progress.StatusInsufficientData, report.Status)

	lines := []string{"1", "maria", "1", "7"}
	for i := 0; i < 7; i++ {
		lines = append(lines, "no", "1000")
	}
	lines = append(lines, "no", "4", "q")
	output = s.runSession(lines...)
	s.Contains(output, "Record created successfully!")
	s.Contains(output, "You're on track to losing weight. Good Job!")

	logContent, err := os.ReadFile(filepath.Join(s.cfg.DataDir, "maria.txt"))
	s.Require().NoError(err)
	s.Equal(7, len(splitLines(string(logContent))))

	report = progress.Report{}
	s.Equal(http.StatusOK, s.getJSON("/users/Maria/progress", &report))
	s.Equal(progress.StatusOK, report.Status)
	s.Equal(7, report.Days)
	s.Equal(progress.TrendDeficit, report.Trend)
	s.Equal(progress.AlignmentOnTrack, report.Alignment)
	s.Less(report.OverallChangeKg, 0.0)

	var bmi progress.BMISummary
	s.Equal(http.StatusOK, s.getJSON("/users/maria/bmi", &bmi))
	s.InDelta(22.0, bmi.BMI, 1e-9)
	s.Equal(bodymetrics.GoalMaintain, bmi.Recommendation)
	s.Equal(bodymetrics.GoalLose, bmi.Goal)

	// the API has the log cached by now, more days come in through the CLI
	output = s.runSession("1", "maria", "1", "yes", "2", "yes", "2500", "yes", "2600", "4", "q")
	s.Contains(output, "New data successfully entered!")

	report = progress.Report{}
	s.Equal(http.StatusOK, s.getJSON("/users/maria/progress", &report))
	s.Equal(9, report.TotalDays)
	s.Equal(7, report.Days)
}

func (s *IntegrationTestSuite) TestUnknownUserAndPath() {
	s.Equal(http.StatusNotFound, s.getJSON("/users/ghost/progress", nil))
	s.Equal(http.StatusNotFound, s.getJSON("/users/ghost/bmi", nil))
	s.Equal(http.StatusNotFound, s.getJSON("/users/ghost/profile", nil))
	s.Equal(http.StatusNotFound, s.getJSON("/blog/all", nil))
}

func (s *IntegrationTestSuite) TestMetricsExposed() {
	s.runSession("1", "nobody", "q")

	resp, err := s.httpClient.Get(serverEndpoint + "/metrics")
	s.Require().NoError(err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)

	s.Contains(string(body), "calorietracker_integration_registered_users")
	s.Contains(string(body), "calorietracker_integration_request")
}

func splitLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
