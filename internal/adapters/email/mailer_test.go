package email

import (
	"strings"
	"testing"
	"time"

	"reviewpulse/internal/domain"
)

func sampleReport() domain.AggregateReport {
	avg := 3.25
	return domain.AggregateReport{
		AppName:       "Example App",
		Bundle:        "com.example.app",
		GeneratedAt:   time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		WindowDays:    7,
		Scope:         "stored-window",
		TotalReviews:  4,
		AverageRating: &avg,
		Sentiment:     domain.SentimentBreakdown{Positive: 2, Neutral: 1, Negative: 1},
		Themes: []domain.ThemeEstimate{
			{Name: "crashes", SampleCount: 2, ExtrapolatedCount: 2},
		},
		Quotes:  []string{"love it"},
		Actions: []string{"Investigate crash reports"},
		Critical: []domain.Review{{
			Source:     domain.SourceGooglePlay,
			ReviewID:   "r1",
			Rating:     1,
			Content:    "crashes <script>alert(1)</script>",
			ReviewDate: time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC),
			Sentiment:  domain.SentimentNegative,
		}},
		Stats: domain.RunStats{Fetched: 5, Duplicates: 1, Persisted: 4},
	}
}

func TestRenderHTML(t *testing.T) {
	html, err := renderHTML(sampleReport())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{
		"Example App",
		"Average rating: 3.25",
		"crashes",
		"Investigate crash reports",
		"frequency themes",
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("missing %q in rendered report", want)
		}
	}
	// html/template must escape review content
	if strings.Contains(html, "<script>") {
		t.Fatalf("unescaped review content in report")
	}
}

func TestRenderHTML_NoAverage(t *testing.T) {
	rep := sampleReport()
	rep.AverageRating = nil
	html, err := renderHTML(rep)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "Average rating: n/a") {
		t.Fatalf("zero-count average not rendered as n/a")
	}
}

func TestReviewsCSV(t *testing.T) {
	rep := sampleReport()
	out := string(reviewsCSV(rep.Critical))
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 {
		t.Fatalf("csv lines = %d, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "source,review_id,date") {
		t.Fatalf("csv header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "google_play,r1,") {
		t.Fatalf("csv row: %s", lines[1])
	}
}

func TestReviewsCSV_ScrubsPII(t *testing.T) {
	reply := "write us at support@example.com"
	rows := []domain.Review{{
		Source:     domain.SourceGooglePlay,
		ReviewID:   "r9",
		Rating:     2,
		Content:    "refund me, mail jane.doe@example.com or call 555-123-4567",
		DevReply:   &reply,
		ReviewDate: time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC),
		Sentiment:  domain.SentimentNegative,
	}}

	out := string(reviewsCSV(rows))
	for _, leaked := range []string{"jane.doe@example.com", "555-123-4567", "support@example.com"} {
		if strings.Contains(out, leaked) {
			t.Fatalf("csv leaks %q", leaked)
		}
	}
	if !strings.Contains(out, "[EMAIL]") || !strings.Contains(out, "[PHONE]") {
		t.Fatalf("csv missing scrub placeholders: %s", out)
	}
}
