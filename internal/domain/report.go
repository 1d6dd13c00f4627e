package domain

import "time"

// ThemeEstimate extrapolates a sampled theme count to the whole corpus:
// round(SampleCount * total/sampleSize), never below SampleCount and never
// above the corpus size.
type ThemeEstimate struct {
	Name              string `json:"name"`
	SampleCount       int    `json:"sample_count"`
	ExtrapolatedCount int    `json:"extrapolated_count"`
}

type KeywordCount struct {
	Word  string `json:"word"`
	Count int    `json:"count"`
}

type SentimentBreakdown struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (s SentimentBreakdown) Total() int { return s.Positive + s.Neutral + s.Negative }

// InsightSet is everything one extractor pass produces over a corpus.
// Enhanced reports whether model inference supplied the themes, quotes and
// actions or the frequency fallback did.
type InsightSet struct {
	Themes   []ThemeEstimate `json:"themes"`
	Keywords []KeywordCount  `json:"keywords"`
	Quotes   []string        `json:"quotes"`
	Actions  []string        `json:"actions"`
	Enhanced bool            `json:"enhanced"`
}

// RunStats are always reported, success or not.
type RunStats struct {
	Fetched      int  `json:"fetched"`
	Duplicates   int  `json:"duplicates"`
	Malformed    int  `json:"malformed"`
	Persisted    int  `json:"persisted"`
	SourceErrors int  `json:"source_errors"`
	Enhanced     bool `json:"enhanced"`
}

type AggregateReport struct {
	RunID       string    `json:"run_id"`
	AppName     string    `json:"app_name"`
	Bundle      string    `json:"bundle"`
	Sources     []string  `json:"sources"`
	GeneratedAt time.Time `json:"generated_at"`
	WindowDays  int       `json:"window_days"`
	Scope       string    `json:"scope"`

	TotalReviews  int                `json:"total_reviews"`
	AverageRating *float64           `json:"average_rating,omitempty"` // nil when TotalReviews == 0
	Sentiment     SentimentBreakdown `json:"sentiment_distribution"`
	RatingCounts  [5]int             `json:"rating_counts"` // index i holds the count of rating i+1

	Themes   []ThemeEstimate `json:"themes"`
	Keywords []KeywordCount  `json:"keywords"`
	Quotes   []string        `json:"quotes"`
	Actions  []string        `json:"actions"`
	Critical []Review        `json:"critical_reviews"`

	Stats RunStats `json:"stats"`
}

// RunState tracks pipeline progress. Delivery states are reached only when
// an outbound channel is configured; Built is the core terminal state.
type RunState string

const (
	StateIdle           RunState = "idle"
	StateFetching       RunState = "fetching"
	StateDeduplicating  RunState = "deduplicating"
	StateEnriching      RunState = "enriching"
	StateAggregating    RunState = "aggregating"
	StateBuilt          RunState = "built"
	StateDelivered      RunState = "delivered"
	StateDeliveryFailed RunState = "delivery_failed"
)
