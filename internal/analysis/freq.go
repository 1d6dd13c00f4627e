package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"reviewpulse/internal/domain"
)

// Options bound every extractor. Zero values fall back to the defaults the
// rest of the pipeline assumes.
type Options struct {
	ThemeCount     int // ranked themes kept
	KeywordCount   int // ranked keywords kept
	QuoteCount     int // representative quotes kept
	ActionCount    int // action suggestions kept
	ThemeSampleCap int // reviews examined for themes
	QuoteSampleCap int // reviews considered for quotes/actions
	TruncateChars  int // per-review text cap before analysis
}

func (o Options) withDefaults() Options {
	if o.ThemeCount <= 0 {
		o.ThemeCount = 5
	}
	if o.KeywordCount <= 0 {
		o.KeywordCount = 10
	}
	if o.QuoteCount <= 0 {
		o.QuoteCount = 3
	}
	if o.ActionCount <= 0 {
		o.ActionCount = 3
	}
	if o.ThemeSampleCap <= 0 {
		o.ThemeSampleCap = 100
	}
	if o.QuoteSampleCap <= 0 {
		o.QuoteSampleCap = 50
	}
	if o.TruncateChars <= 0 {
		o.TruncateChars = 200
	}
	return o
}

// Frequency is the always-available extractor: stopword-filtered phrase
// counting, no network. It doubles as the fallback target of the enhanced
// extractor, so everything here must stay pure and deterministic.
type Frequency struct{ opts Options }

func NewFrequency(opts Options) *Frequency { return &Frequency{opts: opts.withDefaults()} }

func (f *Frequency) Analyze(_ context.Context, corpus []domain.Review, total int) (domain.InsightSet, error) {
	sample := sampleRecent(corpus, f.opts.ThemeSampleCap)
	return domain.InsightSet{
		Themes:   f.themes(sample, total),
		Keywords: f.keywords(corpus),
		Quotes:   f.quotes(corpus),
		Actions:  f.actions(corpus),
		Enhanced: false,
	}, nil
}

// themes counts per-review presence of candidate phrases in the sample and
// extrapolates each count to the whole corpus. Candidates are adjacent
// non-stopword bigrams plus longer single words, a cheap stand-in for noun
// phrases.
func (f *Frequency) themes(sample []domain.Review, total int) []domain.ThemeEstimate {
	presence := map[string]int{}
	for _, r := range sample {
		seen := map[string]struct{}{}
		kept := keptTokens(r.Content)
		for i, w := range kept {
			if len(w) >= 5 {
				seen[w] = struct{}{}
			}
			if i+1 < len(kept) {
				seen[w+" "+kept[i+1]] = struct{}{}
			}
		}
		for c := range seen {
			presence[c]++
		}
	}

	ranked := rankCounts(presence, f.opts.ThemeCount)
	out := make([]domain.ThemeEstimate, 0, len(ranked))
	for _, kc := range ranked {
		out = append(out, domain.ThemeEstimate{
			Name:              kc.Word,
			SampleCount:       kc.Count,
			ExtrapolatedCount: Extrapolate(kc.Count, len(sample), total),
		})
	}
	return out
}

func (f *Frequency) keywords(corpus []domain.Review) []domain.KeywordCount {
	freq := map[string]int{}
	for _, r := range corpus {
		for _, w := range keptTokens(r.Content) {
			freq[w]++
		}
	}
	return rankCounts(freq, f.opts.KeywordCount)
}

// quotes picks the strongest voices per label, round-robin across positive,
// negative, neutral so one loud cohort cannot crowd out the rest.
func (f *Frequency) quotes(corpus []domain.Review) []string {
	pool := sampleRecent(corpus, f.opts.QuoteSampleCap)

	buckets := map[domain.SentimentLabel][]domain.Review{}
	for _, r := range pool {
		if strings.TrimSpace(r.Content) == "" {
			continue
		}
		buckets[r.Sentiment] = append(buckets[r.Sentiment], r)
	}
	for label, b := range buckets {
		sort.SliceStable(b, func(i, j int) bool {
			if label == domain.SentimentNegative {
				return b[i].Score < b[j].Score
			}
			return b[i].Score > b[j].Score
		})
	}

	order := []domain.SentimentLabel{domain.SentimentPositive, domain.SentimentNegative, domain.SentimentNeutral}
	out := make([]string, 0, f.opts.QuoteCount)
	for i := 0; len(out) < f.opts.QuoteCount; i++ {
		advanced := false
		for _, label := range order {
			if i < len(buckets[label]) && len(out) < f.opts.QuoteCount {
				q := Truncate(ScrubPII(strings.TrimSpace(buckets[label][i].Content)), f.opts.TruncateChars)
				out = append(out, q)
				advanced = true
			}
		}
		if !advanced {
			break
		}
	}
	return out
}

// actions turns the loudest negative keywords into follow-ups; with nothing
// negative in the window the fixed holding actions apply.
func (f *Frequency) actions(corpus []domain.Review) []string {
	pool := sampleRecent(corpus, f.opts.QuoteSampleCap)
	var negatives []domain.Review
	for _, r := range pool {
		if r.Sentiment == domain.SentimentNegative {
			negatives = append(negatives, r)
		}
	}

	if len(negatives) == 0 {
		return defaultActions(f.opts.ActionCount)
	}

	freq := map[string]int{}
	for _, r := range negatives {
		for _, w := range keptTokens(r.Content) {
			freq[w]++
		}
	}
	top := rankCounts(freq, f.opts.ActionCount)
	out := make([]string, 0, len(top))
	for _, kc := range top {
		out = append(out, fmt.Sprintf("Investigate issues related to %q", kc.Word))
	}
	if len(out) == 0 {
		return defaultActions(f.opts.ActionCount)
	}
	return out
}

func defaultActions(n int) []string {
	all := []string{
		"Monitor for new feedback",
		"Engage with positive reviewers",
		"Maintain current performance",
	}
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Extrapolate scales an observed sample count to the corpus size:
// round(count * total/sampleSize), clamped to [count, total].
func Extrapolate(count, sampleSize, total int) int {
	if sampleSize <= 0 {
		return count
	}
	est := int(math.Round(float64(count) * float64(total) / float64(sampleSize)))
	if est < count {
		est = count
	}
	if est > total {
		est = total
	}
	return est
}

func keptTokens(text string) []string {
	toks := tokenize(text)
	kept := toks[:0]
	for _, w := range toks {
		if len(w) < 3 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}
	return kept
}

func rankCounts(freq map[string]int, n int) []domain.KeywordCount {
	list := make([]domain.KeywordCount, 0, len(freq))
	for k, v := range freq {
		list = append(list, domain.KeywordCount{Word: k, Count: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Count == list[j].Count {
			return list[i].Word < list[j].Word
		}
		return list[i].Count > list[j].Count
	})
	if n > len(list) {
		n = len(list)
	}
	return list[:n]
}

// sampleRecent returns up to n reviews, newest first, ties broken by the
// composite key so the pick is stable.
func sampleRecent(rs []domain.Review, n int) []domain.Review {
	cp := make([]domain.Review, len(rs))
	copy(cp, rs)
	sort.SliceStable(cp, func(i, j int) bool {
		if cp[i].ReviewDate.Equal(cp[j].ReviewDate) {
			return cp[i].Key() < cp[j].Key()
		}
		return cp[i].ReviewDate.After(cp[j].ReviewDate)
	})
	if n > 0 && len(cp) > n {
		cp = cp[:n]
	}
	return cp
}
