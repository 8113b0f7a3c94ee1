package enums

import "strings"

// Sport is the sport tag a league is filed under on the tracked site.
type Sport string

const (
	Soccer     Sport = "Soccer"
	Basketball Sport = "Basketball"
	Baseball   Sport = "Baseball"
	Hockey     Sport = "Hockey"
	Tennis     Sport = "Tennis"
)

// SportInfo contains additional information about a sport
type SportInfo struct {
	Name  string
	Alias string
}

// GetSportInfo returns sport information
func (s Sport) GetSportInfo() SportInfo {
	switch s {
	case Soccer:
		return SportInfo{Name: "Soccer", Alias: "soccer"}
	case Basketball:
		return SportInfo{Name: "Basketball", Alias: "basketball"}
	case Baseball:
		return SportInfo{Name: "Baseball", Alias: "baseball"}
	case Hockey:
		return SportInfo{Name: "Hockey", Alias: "hockey"}
	case Tennis:
		return SportInfo{Name: "Tennis", Alias: "tennis"}
	default:
		return SportInfo{Name: string(s), Alias: strings.ToLower(string(s))}
	}
}

// IsKnown reports whether the sport is one of the predefined tags.
// Sports defined only in configuration are still usable.
func (s Sport) IsKnown() bool {
	switch s {
	case Soccer, Basketball, Baseball, Hockey, Tennis:
		return true
	default:
		return false
	}
}

// String returns string representation
func (s Sport) String() string {
	return string(s)
}

// GetAllSports returns all predefined sports
func GetAllSports() []Sport {
	return []Sport{Soccer, Basketball, Baseball, Hockey, Tennis}
}

// ParseSport maps a tag to its canonical spelling. "football" is accepted as an alias of Soccer.
// Unknown tags are returned trimmed with ok=false.
func ParseSport(s string) (Sport, bool) {
	v := strings.TrimSpace(s)
	if strings.EqualFold(v, "football") {
		return Soccer, true
	}
	for _, sp := range GetAllSports() {
		if strings.EqualFold(v, string(sp)) {
			return sp, true
		}
	}
	return Sport(v), false
}
