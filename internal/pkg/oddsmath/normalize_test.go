package oddsmath

import (
	"errors"
	"math"
	"testing"

	"github.com/Vodeneev/linesniper/internal/pkg/enums"
)

const tolerance = 1e-9

func TestNormalize_JointSumsToOne(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		prices []float64
	}{
		{"two way", []string{"Home", "Away"}, []float64{1.80, 2.10}},
		{"three way", []string{"Home", "Draw", "Away"}, []float64{2.45, 3.30, 3.10}},
		{"long shot", []string{"A", "B", "C", "D"}, []float64{1.01, 40, 55, 120}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Normalize(tt.labels, tt.prices, enums.ProbModeJoint)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			sum := 0.0
			for _, o := range out {
				sum += o.Probability
			}
			if math.Abs(sum-1.0) > tolerance {
				t.Errorf("sum = %v, want 1.0", sum)
			}
		})
	}
}

func TestNormalize_JointMoneyLine(t *testing.T) {
	out, err := Normalize([]string{"Team A", "Team B"}, []float64{1.80, 2.10}, enums.ProbModeJoint)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []float64{0.5385, 0.4615}
	for i, o := range out {
		if math.Abs(o.Probability-want[i]) > 1e-4 {
			t.Errorf("%s = %.4f, want %.4f", o.Label, o.Probability, want[i])
		}
	}
}

func TestNormalize_PairedEachPairSumsToOne(t *testing.T) {
	labels := []string{"Over 2.5", "Under 2.5", "Over 3", "Under 3", "Over 3.5", "Under 3.5"}
	prices := []float64{1.90, 1.95, 2.40, 1.58, 3.10, 1.36}

	out, err := Normalize(labels, prices, enums.ProbModePaired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != len(labels) {
		t.Fatalf("got %d outcomes, want %d", len(out), len(labels))
	}
	for i := 0; i < len(out); i += 2 {
		sum := out[i].Probability + out[i+1].Probability
		if math.Abs(sum-1.0) > tolerance {
			t.Errorf("pair %d sums to %v", i/2, sum)
		}
	}
}

func TestNormalize_PairedOddLength(t *testing.T) {
	_, err := Normalize([]string{"Over", "Under", "Push"}, []float64{1.9, 1.9, 8.0}, enums.ProbModePaired)
	if !errors.Is(err, ErrInvalidMarketShape) {
		t.Fatalf("err = %v, want ErrInvalidMarketShape", err)
	}
}

func TestNormalize_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		labels []string
		prices []float64
		want   error
	}{
		{"empty", nil, nil, ErrInvalidMarketShape},
		{"length mismatch", []string{"A", "B"}, []float64{1.5}, ErrInvalidMarketShape},
		{"price at 1.0", []string{"A", "B"}, []float64{1.0, 3.0}, ErrInvalidPrice},
		{"negative price", []string{"A", "B"}, []float64{-2, 3.0}, ErrInvalidPrice},
		{"NaN price", []string{"A", "B"}, []float64{math.NaN(), 3.0}, ErrInvalidPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.labels, tt.prices, enums.ProbModeJoint)
			if !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNormalize_DuplicateLabelKeepsLast(t *testing.T) {
	out, err := Normalize([]string{"Yes", "No", "Yes", "No"}, []float64{1.5, 2.5, 2.0, 1.8}, enums.ProbModePaired)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(out))
	}
	want := (1 / 2.0) / (1/2.0 + 1/1.8)
	if math.Abs(out[0].Probability-want) > tolerance {
		t.Errorf("Yes = %v, want %v", out[0].Probability, want)
	}
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		title string
		def   enums.ProbMode
		want  enums.ProbMode
	}{
		{"Money Line – Match", enums.ProbModePaired, enums.ProbModeJoint},
		{"Correct Score 1st Half", enums.ProbModePaired, enums.ProbModeJoint},
		{"Total – Match", enums.ProbModePaired, enums.ProbModePaired},
		{"Handicap – Game", enums.ProbModeJoint, enums.ProbModeJoint},
	}
	for _, tt := range tests {
		if got := ResolveMode(tt.title, tt.def); got != tt.want {
			t.Errorf("ResolveMode(%q, %s) = %s, want %s", tt.title, tt.def, got, tt.want)
		}
	}
}

func TestPriceFromProbability(t *testing.T) {
	tests := []struct {
		p    float64
		want float64
	}{
		{(1 / 1.80) / (1/1.80 + 1/2.10), 1.857},
		{(1 / 2.10) / (1/1.80 + 1/2.10), 2.167},
		{0.5, 2.0},
		{1.0, 1.0},
	}
	for _, tt := range tests {
		got, err := PriceFromProbability(tt.p)
		if err != nil {
			t.Fatalf("PriceFromProbability(%v): %v", tt.p, err)
		}
		if got != tt.want {
			t.Errorf("PriceFromProbability(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}

	if _, err := PriceFromProbability(0); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("zero probability: err = %v, want ErrInvalidPrice", err)
	}
}
