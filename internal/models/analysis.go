package models

import (
	"math"
	"strings"
)

// Label is the binary outcome of the hate-speech classifier.
type Label string

const (
	LabelHate    Label = "hate"
	LabelNonHate Label = "non-hate"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Segment is one contiguous span of transcribed speech.
type Segment struct {
	ID    int     `json:"id"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// ClassifiedSegment is a Segment merged with its classifier verdict.
type ClassifiedSegment struct {
	ID             int     `json:"id"`
	Start          float64 `json:"start"`
	End            float64 `json:"end"`
	Text           string  `json:"text"`
	ClassPredicted Label   `json:"class_predicted"`
	Probability    float64 `json:"probability"`
}

// AnalysisResult is the record persisted once per analyzed video.
type AnalysisResult struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	VideoID string              `json:"video_id"`
	Data    []ClassifiedSegment `json:"data"`
}

// Prediction is the classifier output for a single text.
type Prediction struct {
	Label Label
	Score float64
}

func NewAnalysisResult(videoID string, data []ClassifiedSegment) *AnalysisResult {
	if data == nil {
		data = []ClassifiedSegment{}
	}
	return &AnalysisResult{
		Status:  StatusSuccess,
		Message: "Video analyzed successfully",
		VideoID: videoID,
		Data:    data,
	}
}

func Classify(seg Segment, pred Prediction) ClassifiedSegment {
	return ClassifiedSegment{
		ID:             seg.ID,
		Start:          seg.Start,
		End:            seg.End,
		Text:           strings.TrimSpace(seg.Text),
		ClassPredicted: pred.Label,
		Probability:    RoundProbability(pred.Score),
	}
}

// RoundProbability clamps p to [0,1] and rounds it to 4 decimal places.
func RoundProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return math.Round(p*10000) / 10000
}

// ParseLabel maps the label names emitted by different model exports onto
// the two fixed labels. Index 0 is non-hate and index 1 is hate.
func ParseLabel(raw string) (Label, bool) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("_", "-", " ", "-").Replace(normalized)

	switch normalized {
	case "hate", "label-1", "1", "hateful", "offensive":
		return LabelHate, true
	case "non-hate", "label-0", "0", "not-hate", "nothate", "nonhate", "normal":
		return LabelNonHate, true
	}
	return "", false
}

func (l Label) Valid() bool {
	return l == LabelHate || l == LabelNonHate
}
