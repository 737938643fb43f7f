package models

import "testing"

func TestRoundProbability(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"rounds down", 0.123449, 0.1234},
		{"rounds up", 0.98766, 0.9877},
		{"exact", 0.5, 0.5},
		{"negative clamps", -0.2, 0},
		{"above one clamps", 1.0001, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RoundProbability(tt.in); got != tt.want {
				t.Errorf("RoundProbability(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		raw  string
		want Label
		ok   bool
	}{
		{"hate", LabelHate, true},
		{"LABEL_1", LabelHate, true},
		{"non-hate", LabelNonHate, true},
		{"LABEL_0", LabelNonHate, true},
		{"NOT_HATE", LabelNonHate, true},
		{" Non Hate ", LabelNonHate, true},
		{"LABEL_7", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseLabel(tt.raw)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseLabel(%q) = (%q, %v), want (%q, %v)", tt.raw, got, ok, tt.want, tt.ok)
		}
	}
}

func TestClassifyTrimsAndRounds(t *testing.T) {
	seg := Segment{ID: 3, Start: 1.5, End: 4.25, Text: "  hello there \n"}
	got := Classify(seg, Prediction{Label: LabelHate, Score: 0.876543})

	if got.Text != "hello there" {
		t.Errorf("expected trimmed text, got %q", got.Text)
	}
	if got.Probability != 0.8765 {
		t.Errorf("expected probability 0.8765, got %v", got.Probability)
	}
	if got.ID != 3 || got.Start != 1.5 || got.End != 4.25 {
		t.Errorf("segment timing not preserved: %+v", got)
	}
}

func TestNewAnalysisResultEmptyData(t *testing.T) {
	result := NewAnalysisResult("abc", nil)
	if result.Data == nil {
		t.Fatal("expected non-nil data slice so it marshals as []")
	}
	if result.Status != StatusSuccess {
		t.Errorf("expected status %q, got %q", StatusSuccess, result.Status)
	}
}
