package app

import (
	"context"
	"sort"
	"time"

	"reviewpulse/internal/analysis"
	"reviewpulse/internal/domain"
)

// ReportOptions bound the aggregate. Zero values take the pipeline defaults.
type ReportOptions struct {
	WindowDays     int
	CriticalRating int // rating at or below this is critical
	CriticalCap    int
}

func (o ReportOptions) withDefaults() ReportOptions {
	if o.WindowDays <= 0 {
		o.WindowDays = 7
	}
	if o.CriticalRating <= 0 {
		o.CriticalRating = 2
	}
	if o.CriticalCap <= 0 {
		o.CriticalCap = 10
	}
	return o
}

// ReportMeta is the run context stamped onto the report.
type ReportMeta struct {
	RunID   string
	AppName string
	Bundle  string
	Sources []string
	Stats   domain.RunStats
}

// scope declared on every report: the aggregate covers all stored reviews
// for the bundle inside the scrape window, not just this run's new rows
const ScopeStoredWindow = "stored-window"

// BuildReport aggregates the in-scope corpus and assembles the terminal
// artifact. Pure apart from the extractor call; extraction failures degrade
// to empty insight lists, never abort.
func BuildReport(ctx context.Context, corpus []domain.Review, ins domain.Insights, meta ReportMeta, opts ReportOptions) domain.AggregateReport {
	opts = opts.withDefaults()

	rep := domain.AggregateReport{
		RunID:        meta.RunID,
		AppName:      meta.AppName,
		Bundle:       meta.Bundle,
		Sources:      meta.Sources,
		GeneratedAt:  time.Now().UTC(),
		WindowDays:   opts.WindowDays,
		Scope:        ScopeStoredWindow,
		TotalReviews: len(corpus),
		Stats:        meta.Stats,
	}

	if len(corpus) > 0 {
		var sum int
		for _, r := range corpus {
			sum += r.Rating
			if r.Rating >= 1 && r.Rating <= 5 {
				rep.RatingCounts[r.Rating-1]++
			}
			switch r.Sentiment {
			case domain.SentimentPositive:
				rep.Sentiment.Positive++
			case domain.SentimentNegative:
				rep.Sentiment.Negative++
			default:
				rep.Sentiment.Neutral++
			}
		}
		avg := float64(sum) / float64(len(corpus))
		rep.AverageRating = &avg
	}

	rep.Critical = criticalReviews(corpus, opts)

	set, err := ins.Analyze(ctx, corpus, len(corpus))
	if err != nil {
		// the frequency extractor never errors and the enhanced one falls
		// back internally, so this is purely belt-and-braces
		return rep
	}
	rep.Themes = set.Themes
	rep.Keywords = set.Keywords
	rep.Quotes = set.Quotes
	rep.Actions = set.Actions
	rep.Stats.Enhanced = set.Enhanced

	return rep
}

// criticalReviews flags low ratings and negative sentiment, newest first,
// with quote text scrubbed before it leaves the pipeline.
func criticalReviews(corpus []domain.Review, opts ReportOptions) []domain.Review {
	var crit []domain.Review
	for _, r := range corpus {
		if r.Rating <= opts.CriticalRating || r.Sentiment == domain.SentimentNegative {
			crit = append(crit, r)
		}
	}
	sort.SliceStable(crit, func(i, j int) bool {
		if crit[i].ReviewDate.Equal(crit[j].ReviewDate) {
			return crit[i].Key() < crit[j].Key()
		}
		return crit[i].ReviewDate.After(crit[j].ReviewDate)
	})
	if len(crit) > opts.CriticalCap {
		crit = crit[:opts.CriticalCap]
	}
	for i := range crit {
		crit[i].Content = analysis.ScrubPII(crit[i].Content)
	}
	return crit
}
