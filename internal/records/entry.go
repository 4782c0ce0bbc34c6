package records

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	gymYes = "yes"
	gymNo  = "no"
)

// Entry is a single recorded day.
type Entry struct {
	WentToGym bool `json:"wentToGym"`
	Calories  int  `json:"calories"`
}

// ParseLine parses a stored "gym,calories" line. Lines with a field count other
// than two, or with non-integer calories, are reported as not ok and are
// meant to be skipped by the caller.
func ParseLine(line string) (Entry, bool) {
	fields := strings.Split(strings.ToLower(strings.TrimSpace(line)), ",")
	if len(fields) != 2 {
		return Entry{}, false
	}

	calories, err := strconv.Atoi(strings.TrimSpace(fields[1]))
	if err != nil {
		return Entry{}, false
	}

	return Entry{
		WentToGym: strings.TrimSpace(fields[0]) == gymYes,
		Calories:  calories,
	}, true
}

func FormatLine(e Entry) string {
	gym := gymNo
	if e.WentToGym {
		gym = gymYes
	}
	return fmt.Sprintf("%s,%d", gym, e.Calories)
}

// ParseLines parses all lines, keeping only the well-formed ones in order.
// The number of skipped non-blank lines is returned as well.
func ParseLines(lines []string) (_ []Entry, skipped int) {
	entries := make([]Entry, 0, len(lines))
	for _, line := range lines {
		e, ok := ParseLine(line)
		if !ok {
			if strings.TrimSpace(line) != "" {
				skipped++
			}
			continue
		}
		entries = append(entries, e)
	}
	return entries, skipped
}
