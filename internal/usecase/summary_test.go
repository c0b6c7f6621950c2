package usecase

import (
	"testing"

	"introspect/internal/domain"
)

func TestAverageHeartRate(t *testing.T) {
	t.Parallel()

	withRates := func(rates ...*int) []domain.AnalysisRecord {
		out := make([]domain.AnalysisRecord, 0, len(rates))
		for _, rate := range rates {
			out = append(out, domain.AnalysisRecord{Metrics: &domain.SampledMetrics{HeartRate: rate}})
		}
		return out
	}

	tests := []struct {
		name    string
		records []domain.AnalysisRecord
		want    int
	}{
		{name: "empty", records: nil, want: 0},
		{name: "mean", records: withRates(intPtr(70), intPtr(80), intPtr(90)), want: 80},
		{name: "rounds half up", records: withRates(intPtr(70), intPtr(71)), want: 71},
		{name: "rounds down", records: withRates(intPtr(70), intPtr(70), intPtr(71)), want: 70},
		{name: "missing counts as zero", records: withRates(intPtr(80), nil), want: 40},
		{name: "no metrics counts as zero", records: []domain.AnalysisRecord{{}, {Metrics: &domain.SampledMetrics{HeartRate: intPtr(90)}}}, want: 45},
	}
	for _, tt := range tests {
		if got := AverageHeartRate(tt.records); got != tt.want {
			t.Fatalf("%s: got %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestHeadline(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Good session.\nDetails follow.": "Good session.",
		"Single line":                    "Single line",
		"\n  Leading blank\nrest":        "Leading blank",
		"":                               "",
		"\n\n":                           "\n\n",
	}
	for input, want := range tests {
		if got := Headline(input); got != want {
			t.Fatalf("Headline(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDurationMinutes(t *testing.T) {
	t.Parallel()

	tests := map[string]int{
		"185":   3,
		"59":    0,
		"60":    1,
		" 120 ": 2,
		"90.5":  1,
		"-30":   0,
		"":      0,
		"abc":   0,
		"NaN":   0,
	}
	for input, want := range tests {
		if got := DurationMinutes(input); got != want {
			t.Fatalf("DurationMinutes(%q) = %d, want %d", input, got, want)
		}
	}
}
