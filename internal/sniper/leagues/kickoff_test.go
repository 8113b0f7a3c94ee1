package leagues

import (
	"errors"
	"testing"
	"time"
)

func TestParseKickoff(t *testing.T) {
	loc := time.FixedZone("CEST", 2*3600)
	now := time.Date(2025, 5, 6, 10, 15, 0, 0, loc)

	tests := []struct {
		name  string
		date  string
		clock string
		want  time.Time
	}{
		{"today", "TODAY", "18:30", time.Date(2025, 5, 6, 18, 30, 0, 0, loc)},
		{"today mixed case", " Today ", "09:05", time.Date(2025, 5, 6, 9, 5, 0, 0, loc)},
		{"tomorrow", "TOMORROW", "00:00", time.Date(2025, 5, 7, 0, 0, 0, 0, loc)},
		{"weekday short month", "TUE MAY 06, 2025", "20:45", time.Date(2025, 5, 6, 20, 45, 0, 0, loc)},
		{"no weekday", "JUN 01, 2025", "13:00", time.Date(2025, 6, 1, 13, 0, 0, 0, loc)},
		{"long month", "Saturday September 13, 2025", "16:00", time.Date(2025, 9, 13, 16, 0, 0, 0, loc)},
		{"single digit hour", "TODAY", "8:30", time.Date(2025, 5, 6, 8, 30, 0, 0, loc)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKickoff(tt.date, tt.clock, now, loc)
			if err != nil {
				t.Fatalf("ParseKickoff() error = %v", err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseKickoff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseKickoffTomorrowAcrossMonth(t *testing.T) {
	now := time.Date(2025, 5, 31, 23, 0, 0, 0, time.UTC)
	got, err := ParseKickoff("TOMORROW", "01:00", now, time.UTC)
	if err != nil {
		t.Fatalf("ParseKickoff() error = %v", err)
	}
	if want := time.Date(2025, 6, 1, 1, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("ParseKickoff() = %v, want %v", got, want)
	}
}

func TestParseKickoffErrors(t *testing.T) {
	now := time.Date(2025, 5, 6, 10, 0, 0, 0, time.UTC)
	tests := []struct {
		name, date, clock string
	}{
		{"empty date", "", "18:30"},
		{"live label", "LIVE", "18:30"},
		{"unknown month", "TUE FOO 06, 2025", "18:30"},
		{"bad day", "MAY 40, 2025", "18:30"},
		{"impossible date", "FEB 30, 2025", "18:30"},
		{"bad year", "MAY 06, twenty", "18:30"},
		{"bad clock", "TODAY", "6pm"},
		{"clock out of range", "TODAY", "25:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseKickoff(tt.date, tt.clock, now, time.UTC)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("ParseKickoff() error = %v, want *ParseError", err)
			}
			if perr.Date != tt.date || perr.Clock != tt.clock {
				t.Errorf("ParseError = %+v", perr)
			}
		})
	}
}
