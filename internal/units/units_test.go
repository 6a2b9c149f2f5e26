package units

import (
	"math"
	"testing"
)

func TestIsValid(t *testing.T) {
	tests := []struct {
		unit     string
		expected bool
	}{
		{MMPS, true},
		{MPS, true},
		{KMPH, true},
		{MPH, true},
		{ScaleKMPH, true},
		{"kph", false},
		{"", false},
		{"MPS", false}, // case-sensitive
	}

	for _, tt := range tests {
		if got := IsValid(tt.unit); got != tt.expected {
			t.Errorf("IsValid(%q) = %v, want %v", tt.unit, got, tt.expected)
		}
	}
}

func TestGetValidUnitsString(t *testing.T) {
	want := "mmps, mps, kmph, mph, scale_kmph"
	if got := GetValidUnitsString(); got != want {
		t.Errorf("GetValidUnitsString() = %q, want %q", got, want)
	}
}

func TestConvertSpeed(t *testing.T) {
	tests := []struct {
		name     string
		mmps     float64
		unit     string
		expected float64
	}{
		{"mmps unchanged", 500, MMPS, 500},
		{"unknown unchanged", 500, "furlongs", 500},
		{"to mps", 1500, MPS, 1.5},
		{"to kmph", 1000, KMPH, 3.6},
		{"to mph", 1000, MPH, 2.2369362920544},
		{"to scale kmph", 1000, ScaleKMPH, 230.4},
		{"zero", 0, KMPH, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConvertSpeed(tt.mmps, tt.unit)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("ConvertSpeed(%v, %q) = %v, want %v", tt.mmps, tt.unit, got, tt.expected)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if Label(KMPH) != "km/h" || Label(MMPS) != "mm/s" || Label("other") != "mm/s" {
		t.Error("unexpected labels")
	}
}
