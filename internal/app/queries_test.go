package app_test

import (
	"context"
	"testing"
	"time"

	"reviewpulse/internal/analysis"
	"reviewpulse/internal/app"
	"reviewpulse/internal/domain"
)

// ---- fakes ----

type fakeCache struct {
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.ReviewsPage:
		*d = v.(domain.ReviewsPage)
	case *domain.AggregateReport:
		*d = v.(domain.AggregateReport)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error { return nil }

func seededStore(t *testing.T) *memStore {
	t.Helper()
	store := newMemStore()
	batch := playBatch()
	for i := range batch.Reviews {
		batch.Reviews[i].Score, batch.Reviews[i].Sentiment = analysis.Score(batch.Reviews[i].Content)
	}
	if _, err := store.Append(context.Background(), batch.Reviews); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return store
}

// ---- tests ----

func TestQueryService_ListReviews_Cache(t *testing.T) {
	store := seededStore(t)
	cache := &fakeCache{}
	q := app.NewQueryService(store, analysis.NewFrequency(analysis.Options{}), cache,
		10*time.Minute, app.ReportOptions{}, 0)

	out, err := q.ListReviews(context.Background(), bundle, domain.PageQuery{Limit: 10, Sort: "-review_date"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(out.Items))
	}

	// drop the store's rows; the second call must come from cache
	store.rows = map[string]domain.Review{}
	out2, err := q.ListReviews(context.Background(), bundle, domain.PageQuery{Limit: 10, Sort: "-review_date"})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(out2.Items) != 3 {
		t.Fatalf("expected cached page, got %d items", len(out2.Items))
	}
}

func TestQueryService_Report(t *testing.T) {
	store := seededStore(t)
	cache := &fakeCache{}
	q := app.NewQueryService(store, analysis.NewFrequency(analysis.Options{}), cache,
		10*time.Minute, app.ReportOptions{WindowDays: 7}, 0)

	rep, err := q.Report(context.Background(), bundle, 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rep.TotalReviews != 3 || rep.AverageRating == nil || *rep.AverageRating != 3.0 {
		t.Fatalf("unexpected report: total=%d avg=%v", rep.TotalReviews, rep.AverageRating)
	}
	if rep.Scope != app.ScopeStoredWindow {
		t.Fatalf("scope %q", rep.Scope)
	}

	// cached on repeat
	store.rows = map[string]domain.Review{}
	rep2, err := q.Report(context.Background(), bundle, 0)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rep2.TotalReviews != 3 {
		t.Fatalf("expected cached report, got total=%d", rep2.TotalReviews)
	}
}

func TestQueryService_UnknownBundle(t *testing.T) {
	q := app.NewQueryService(newMemStore(), analysis.NewFrequency(analysis.Options{}), &fakeCache{},
		time.Minute, app.ReportOptions{}, 0)

	if _, err := q.Report(context.Background(), "com.unknown", 0); err != domain.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if _, err := q.ListReviews(context.Background(), "com.unknown", domain.PageQuery{Limit: 10}); err != domain.ErrNotFound {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
