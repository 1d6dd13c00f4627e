package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"reviewpulse/internal/domain"
)

// QueryService is the read side behind cmd/api: stored reviews and on-demand
// reports over the persisted corpus, cached per bundle.
type QueryService struct {
	store    domain.ReviewStore
	insights domain.Insights
	cache    domain.Cache
	cacheTTL time.Duration
	opts     ReportOptions
	maxScope int
}

func NewQueryService(store domain.ReviewStore, ins domain.Insights, cache domain.Cache,
	ttl time.Duration, opts ReportOptions, maxScope int) *QueryService {
	if maxScope <= 0 {
		maxScope = 5000
	}
	return &QueryService{
		store:    store,
		insights: ins,
		cache:    cache,
		cacheTTL: ttl,
		opts:     opts.withDefaults(),
		maxScope: maxScope,
	}
}

func (s *QueryService) ListReviews(ctx context.Context, bundle string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	cur := ""
	if pg.Cursor != nil {
		cur = *pg.Cursor
	}
	key := fmt.Sprintf("reviews:%s:%d:%s:%s", bundle, pg.Limit, pg.Sort, cur)
	var out domain.ReviewsPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	rs, err := s.store.ListReviews(ctx, bundle, pg)
	if err != nil {
		return domain.ReviewsPage{}, err
	}
	if len(rs.Items) == 0 {
		return domain.ReviewsPage{}, domain.ErrNotFound
	}

	// copy to avoid aliasing the store's backing array into the cache
	cp := deepCopyReviewsPage(rs)
	if b, _ := json.Marshal(cp); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, cp, int(s.cacheTTL.Seconds()))
	}
	return cp, nil
}

// Report aggregates the stored window for the bundle on demand. The window
// days override defaults to the configured scrape window.
func (s *QueryService) Report(ctx context.Context, bundle string, days int) (domain.AggregateReport, error) {
	opts := s.opts
	if days > 0 {
		opts.WindowDays = days
	}

	key := fmt.Sprintf("report:%s:%d", bundle, opts.WindowDays)
	var cached domain.AggregateReport
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	since := time.Now().UTC().AddDate(0, 0, -opts.WindowDays)
	corpus, err := s.store.ListWindow(ctx, bundle, since, s.maxScope)
	if err != nil {
		return domain.AggregateReport{}, err
	}
	if len(corpus) == 0 {
		return domain.AggregateReport{}, domain.ErrNotFound
	}

	meta := ReportMeta{
		RunID:   uuid.NewString(),
		AppName: bundle,
		Bundle:  bundle,
		Sources: sourcesOf(corpus),
	}
	rep := BuildReport(ctx, corpus, s.insights, meta, opts)
	_ = s.cache.Set(ctx, key, rep, int(s.cacheTTL.Seconds()))
	return rep, nil
}

func sourcesOf(rs []domain.Review) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, r := range rs {
		if _, ok := seen[r.Source]; ok {
			continue
		}
		seen[r.Source] = struct{}{}
		out = append(out, r.Source)
	}
	return out
}

func deepCopyReviewsPage(in domain.ReviewsPage) domain.ReviewsPage {
	out := domain.ReviewsPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Review, n)
		copy(out.Items, in.Items)
	}
	return out
}
