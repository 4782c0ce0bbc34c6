package session

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// prompt writes text and reads one line of input, without the line break.
func (s *Session) prompt(text string) (string, error) {
	s.printf("%s", text)
	if !s.in.Scan() {
		if err := s.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", errEndOfInput
	}
	return strings.TrimRight(s.in.Text(), "\r"), nil
}

func (s *Session) promptYesNo(text, retryMsg string) (bool, error) {
	for {
		answer, err := s.prompt(text)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "yes":
			return true, nil
		case "no":
			return false, nil
		}
		s.println(retryMsg)
	}
}

func (s *Session) promptInt(text, retryMsg string) (int, error) {
	for {
		answer, err := s.prompt(text)
		if err != nil {
			return 0, err
		}
		n, ok := parseInt(answer)
		if ok {
			return n, nil
		}
		s.println(retryMsg)
	}
}

func parseInt(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	return n, err == nil
}

// parsePositive accepts finite numbers above zero only.
func parsePositive(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, false
	}
	return f, true
}

func (s *Session) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.out, format, args...)
}

func (s *Session) println(args ...any) {
	_, _ = fmt.Fprintln(s.out, args...)
}
