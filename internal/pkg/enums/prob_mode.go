package enums

import (
	"fmt"
	"strings"
)

// ProbMode selects how implied probabilities of a market are renormalised.
type ProbMode string

const (
	// ProbModePaired normalises each consecutive pair of outcomes on its own
	// (over/under at one total, home/away at one handicap).
	ProbModePaired ProbMode = "paired"
	// ProbModeJoint normalises all outcomes of the market together (3-way moneyline, correct score).
	ProbModeJoint ProbMode = "joint"
)

func (m ProbMode) String() string {
	return string(m)
}

// ParseProbMode parses a configured mode name.
func ParseProbMode(s string) (ProbMode, error) {
	switch ProbMode(strings.ToLower(strings.TrimSpace(s))) {
	case ProbModePaired:
		return ProbModePaired, nil
	case ProbModeJoint:
		return ProbModeJoint, nil
	default:
		return "", fmt.Errorf("unknown probability mode %q (want %q or %q)", s, ProbModePaired, ProbModeJoint)
	}
}
