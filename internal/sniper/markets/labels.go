package markets

import "strings"

// Disambiguate prefixes outcome labels so both sides of a market get distinct keys.
//
// Team totals come in blocks of two (over/under) per team: indices 0-1 are the home team,
// 2-3 the away team, and so on. Handicaps come in home/away pairs. Anything else is
// returned unchanged.
func Disambiguate(title string, labels []string) []string {
	lower := strings.ToLower(title)
	out := make([]string, len(labels))
	copy(out, labels)

	switch {
	case strings.Contains(lower, "team") && !strings.Contains(lower, "both teams to score"):
		for i := range out {
			out[i] = side((i/2)%2 == 0) + out[i]
		}
	case strings.Contains(lower, "handicap"):
		for i := range out {
			out[i] = side(i%2 == 0) + out[i]
		}
	}
	return out
}

func side(home bool) string {
	if home {
		return "Home "
	}
	return "Away "
}
