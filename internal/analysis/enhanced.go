package analysis

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"reviewpulse/internal/domain"
)

// Enhanced asks a language model for themes, quotes and actions over a
// bounded, scrubbed sample of the corpus. Any failure on the way (request,
// parse, unusable payload) falls back to the frequency variant for that
// call; callers never see an error, only Enhanced=false in the result.
type Enhanced struct {
	inf  domain.Inference
	freq *Frequency
	opts Options
	log  zerolog.Logger
}

func NewEnhanced(inf domain.Inference, opts Options, log zerolog.Logger) *Enhanced {
	return &Enhanced{inf: inf, freq: NewFrequency(opts), opts: opts.withDefaults(), log: log}
}

type llmTheme struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type llmInsights struct {
	Themes  []llmTheme `json:"themes"`
	Quotes  []string   `json:"quotes"`
	Actions []string   `json:"actions"`
}

func (e *Enhanced) Analyze(ctx context.Context, corpus []domain.Review, total int) (domain.InsightSet, error) {
	if len(corpus) == 0 {
		return e.freq.Analyze(ctx, corpus, total)
	}

	sample := sampleRecent(corpus, e.opts.ThemeSampleCap)
	set, err := e.fromModel(ctx, sample, total)
	if err != nil {
		e.log.Warn().Err(err).Int("sample", len(sample)).Msg("inference unusable, using frequency extractor")
		return e.freq.Analyze(ctx, corpus, total)
	}

	// Keywords always come from the frequency ranking; the model is not
	// asked for them.
	set.Keywords = e.freq.keywords(corpus)
	set.Enhanced = true
	return set, nil
}

func (e *Enhanced) fromModel(ctx context.Context, sample []domain.Review, total int) (domain.InsightSet, error) {
	raw, err := e.inf.Complete(ctx, e.prompt(sample))
	if err != nil {
		return domain.InsightSet{}, err
	}

	parsed, err := DecodeJSON[llmInsights](raw)
	if err != nil {
		return domain.InsightSet{}, &domain.InferenceError{Stage: "parse", Err: err}
	}

	themes := make([]domain.ThemeEstimate, 0, len(parsed.Themes))
	for _, t := range parsed.Themes {
		name := strings.TrimSpace(t.Name)
		if name == "" {
			continue
		}
		count := t.Count
		if count < 0 {
			count = 0
		}
		if count > len(sample) {
			count = len(sample)
		}
		themes = append(themes, domain.ThemeEstimate{
			Name:              name,
			SampleCount:       count,
			ExtrapolatedCount: Extrapolate(count, len(sample), total),
		})
		if len(themes) == e.opts.ThemeCount {
			break
		}
	}

	quotes := cleanStrings(parsed.Quotes, e.opts.QuoteCount, e.opts.TruncateChars)
	actions := cleanStrings(parsed.Actions, e.opts.ActionCount, 0)

	if len(themes) == 0 || len(quotes) == 0 || len(actions) == 0 {
		return domain.InsightSet{}, &domain.InferenceError{
			Stage: "validate",
			Err:   fmt.Errorf("payload unusable: %d themes, %d quotes, %d actions", len(themes), len(quotes), len(actions)),
		}
	}

	return domain.InsightSet{Themes: themes, Quotes: quotes, Actions: actions}, nil
}

func (e *Enhanced) prompt(sample []domain.Review) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You analyze mobile app store reviews. Below are %d recent reviews, one per line.\n\n", len(sample))
	b.WriteString("Return STRICT JSON only, no prose, shaped exactly as:\n")
	b.WriteString(`{"themes":[{"name":"...","count":0}],"quotes":["..."],"actions":["..."]}` + "\n\n")
	fmt.Fprintf(&b, "Rules:\n")
	fmt.Fprintf(&b, "- the %d most recurring themes; count = how many listed reviews mention the theme\n", e.opts.ThemeCount)
	fmt.Fprintf(&b, "- %d short representative quotes taken verbatim from the reviews\n", e.opts.QuoteCount)
	fmt.Fprintf(&b, "- %d concrete action suggestions for the developers\n\n", e.opts.ActionCount)
	b.WriteString("Reviews:\n")
	for i, r := range sample {
		text := Truncate(ScrubPII(strings.TrimSpace(r.Content)), e.opts.TruncateChars)
		fmt.Fprintf(&b, "%d. [%d/5] %s\n", i+1, r.Rating, text)
	}
	return b.String()
}

func cleanStrings(in []string, n, truncate int) []string {
	out := make([]string, 0, n)
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		s = ScrubPII(s)
		if truncate > 0 {
			s = Truncate(s, truncate)
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}
