package analysis_test

import (
	"testing"

	"reviewpulse/internal/analysis"
	"reviewpulse/internal/domain"
)

func TestScore_EmptyTextIsExactlyNeutral(t *testing.T) {
	for _, text := range []string{"", "   ", "\n\t  "} {
		score, label := analysis.Score(text)
		if score != 0.0 {
			t.Fatalf("Score(%q) = %v, want exactly 0.0", text, score)
		}
		if label != domain.SentimentNeutral {
			t.Fatalf("Score(%q) label = %s, want neutral", text, label)
		}
	}
}

func TestScore_Labels(t *testing.T) {
	cases := []struct {
		text string
		want domain.SentimentLabel
	}{
		{"terrible, crashes constantly", domain.SentimentNegative},
		{"love it!", domain.SentimentPositive},
		{"fine", domain.SentimentNeutral},
		{"not good at all", domain.SentimentNegative},
		{"doesn't work anymore", domain.SentimentNegative},
		{"very slow and buggy", domain.SentimentNegative},
		{"really great, super helpful", domain.SentimentPositive},
		{"opens the settings screen", domain.SentimentNeutral},
	}
	for _, c := range cases {
		score, label := analysis.Score(c.text)
		if label != c.want {
			t.Fatalf("Score(%q) = %v (%s), want %s", c.text, score, label, c.want)
		}
		if score < -1 || score > 1 {
			t.Fatalf("Score(%q) = %v out of [-1,1]", c.text, score)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	const text = "love the new design but it crashes on startup"
	first, _ := analysis.Score(text)
	for i := 0; i < 5; i++ {
		got, _ := analysis.Score(text)
		if got != first {
			t.Fatalf("run %d: Score = %v, want %v", i, got, first)
		}
	}
}

func TestLabelFor_Thresholds(t *testing.T) {
	cases := []struct {
		score float64
		want  domain.SentimentLabel
	}{
		{0.0, domain.SentimentNeutral},
		{0.1, domain.SentimentNeutral},
		{0.11, domain.SentimentPositive},
		{-0.1, domain.SentimentNeutral},
		{-0.11, domain.SentimentNegative},
		{1, domain.SentimentPositive},
		{-1, domain.SentimentNegative},
	}
	for _, c := range cases {
		if got := analysis.LabelFor(c.score); got != c.want {
			t.Fatalf("LabelFor(%v) = %s, want %s", c.score, got, c.want)
		}
	}
}
