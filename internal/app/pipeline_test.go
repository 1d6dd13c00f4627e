package app_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"reviewpulse/internal/analysis"
	"reviewpulse/internal/app"
	"reviewpulse/internal/domain"
)

// ---- fakes ----

type fakeSource struct {
	source  string
	batch   domain.Batch
	err     error
	onFetch func()
}

func (f *fakeSource) Source() string { return f.source }
func (f *fakeSource) Fetch(ctx context.Context, app domain.AppRef, since time.Time, max int) (domain.Batch, error) {
	if f.onFetch != nil {
		f.onFetch()
	}
	if f.err != nil {
		return domain.Batch{Source: f.source, AppID: app.AppID}, f.err
	}
	return f.batch, nil
}

type memStore struct {
	mu            sync.Mutex
	rows          map[string]domain.Review
	appendErr     error
	listWindowErr error
}

func newMemStore() *memStore { return &memStore{rows: map[string]domain.Review{}} }

func (m *memStore) Append(ctx context.Context, rs []domain.Review) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return 0, m.appendErr
	}
	written := 0
	for _, rv := range rs {
		if _, ok := m.rows[rv.Key()]; ok {
			continue
		}
		m.rows[rv.Key()] = rv
		written++
	}
	return written, nil
}

func (m *memStore) ExistingIDs(ctx context.Context, source, appID string, ids []string) (map[string]struct{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	known := map[string]struct{}{}
	for _, id := range ids {
		probe := domain.Review{Source: source, AppID: appID, ReviewID: id}
		if _, ok := m.rows[probe.Key()]; ok {
			known[id] = struct{}{}
		}
	}
	return known, nil
}

func (m *memStore) ListWindow(ctx context.Context, bundle string, since time.Time, limit int) ([]domain.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listWindowErr != nil {
		return nil, m.listWindowErr
	}
	var out []domain.Review
	for _, rv := range m.rows {
		if rv.Bundle == bundle && !rv.ReviewDate.Before(since) {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewDate.After(out[j].ReviewDate) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListReviews(ctx context.Context, bundle string, pg domain.PageQuery) (domain.ReviewsPage, error) {
	rs, err := m.ListWindow(ctx, bundle, time.Time{}, pg.Limit)
	return domain.ReviewsPage{Items: rs}, err
}

// ---- helpers ----

const bundle = "com.example.app"

func playReview(id, text string, rating int, age time.Duration) domain.Review {
	return domain.Review{
		Source:     domain.SourceGooglePlay,
		AppID:      bundle,
		ReviewID:   id,
		Bundle:     bundle,
		Rating:     rating,
		Content:    text,
		ReviewDate: time.Now().UTC().Add(-age),
	}
}

func playBatch() domain.Batch {
	return domain.Batch{
		Source: domain.SourceGooglePlay,
		AppID:  bundle,
		Reviews: []domain.Review{
			playReview("r1", "terrible, crashes constantly", 1, time.Hour),
			playReview("r2", "love it!", 5, 2*time.Hour),
			playReview("r3", "fine", 3, 3*time.Hour),
		},
	}
}

func newPipeline(store *memStore, sources ...domain.SourceClient) *app.Pipeline {
	return app.NewPipeline(sources, store, nil, analysis.NewFrequency(analysis.Options{}),
		app.RunOptions{}, zerolog.Nop())
}

func playRefs() []domain.AppRef {
	return []domain.AppRef{{Source: domain.SourceGooglePlay, AppID: bundle, Bundle: bundle, Name: "Example"}}
}

// ---- tests ----

func TestPipeline_EndToEnd(t *testing.T) {
	store := newMemStore()
	p := newPipeline(store, &fakeSource{source: domain.SourceGooglePlay, batch: playBatch()})

	rep, err := p.Run(context.Background(), playRefs())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if rep.Stats.Persisted != 3 || rep.TotalReviews != 3 {
		t.Fatalf("persisted=%d total=%d, want 3/3", rep.Stats.Persisted, rep.TotalReviews)
	}
	if rep.AverageRating == nil || *rep.AverageRating != 3.0 {
		t.Fatalf("average rating = %v, want 3.0", rep.AverageRating)
	}
	if rep.Sentiment.Total() != rep.TotalReviews {
		t.Fatalf("sentiment distribution sums to %d, want %d", rep.Sentiment.Total(), rep.TotalReviews)
	}
	if rep.Sentiment.Negative != 1 || rep.Sentiment.Positive != 1 || rep.Sentiment.Neutral != 1 {
		t.Fatalf("distribution %+v, want 1/1/1", rep.Sentiment)
	}
	if rep.Scope != app.ScopeStoredWindow {
		t.Fatalf("scope %q", rep.Scope)
	}

	found := false
	for _, c := range rep.Critical {
		if c.ReviewID == "r1" && c.Rating == 1 {
			found = true
		}
	}
	if !found {
		t.Fatalf("rating-1 review missing from critical list: %+v", rep.Critical)
	}

	// persisted labels match the scorer
	for key, want := range map[string]domain.SentimentLabel{
		"r1": domain.SentimentNegative,
		"r2": domain.SentimentPositive,
		"r3": domain.SentimentNeutral,
	} {
		probe := domain.Review{Source: domain.SourceGooglePlay, AppID: bundle, ReviewID: key}
		got := store.rows[probe.Key()]
		if got.Sentiment != want {
			t.Fatalf("review %s labeled %s, want %s", key, got.Sentiment, want)
		}
	}
}

func TestPipeline_SecondRunIsIdempotent(t *testing.T) {
	store := newMemStore()
	src := &fakeSource{source: domain.SourceGooglePlay, batch: playBatch()}
	p := newPipeline(store, src)
	ctx := context.Background()

	if _, err := p.Run(ctx, playRefs()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	rep, err := p.Run(ctx, playRefs())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if rep.Stats.Persisted != 0 {
		t.Fatalf("second run persisted %d, want 0", rep.Stats.Persisted)
	}
	if rep.Stats.Duplicates != 3 {
		t.Fatalf("second run duplicates %d, want 3", rep.Stats.Duplicates)
	}
	// stored-window scope: totals reflect everything stored in the window
	if rep.TotalReviews != 3 {
		t.Fatalf("second run total %d, want 3", rep.TotalReviews)
	}
	if len(store.rows) != 3 {
		t.Fatalf("store holds %d rows, want 3", len(store.rows))
	}
}

func TestPipeline_FailingSourceDoesNotAbortRun(t *testing.T) {
	store := newMemStore()
	play := &fakeSource{source: domain.SourceGooglePlay, batch: playBatch()}
	apple := &fakeSource{
		source: domain.SourceAppStore,
		err:    &domain.SourceError{Source: domain.SourceAppStore, Err: errors.New("timeout")},
	}
	p := newPipeline(store, play, apple)

	refs := append(playRefs(), domain.AppRef{Source: domain.SourceAppStore, AppID: "42", Bundle: bundle})
	rep, err := p.Run(context.Background(), refs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if rep.Stats.SourceErrors != 1 {
		t.Fatalf("source errors %d, want 1", rep.Stats.SourceErrors)
	}
	if rep.Stats.Persisted != 3 {
		t.Fatalf("persisted %d, want the healthy source's 3", rep.Stats.Persisted)
	}
}

func TestPipeline_PersistFailureAborts(t *testing.T) {
	store := newMemStore()
	store.appendErr = errors.New("disk full")
	p := newPipeline(store, &fakeSource{source: domain.SourceGooglePlay, batch: playBatch()})

	_, err := p.Run(context.Background(), playRefs())
	var pe *domain.PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("want PersistError, got %v", err)
	}
	if pe.Written != 0 {
		t.Fatalf("written %d, want 0", pe.Written)
	}
}

func TestPipeline_CancelledRunPersistsNothing(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// cancellation lands after the fetch succeeds, before scoring
	src := &fakeSource{source: domain.SourceGooglePlay, batch: playBatch(), onFetch: cancel}
	p := newPipeline(store, src)

	_, err := p.Run(ctx, playRefs())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	var pe *domain.PersistError
	if errors.As(err, &pe) {
		t.Fatalf("cancellation must not surface as a persistence failure: %v", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("cancelled run persisted %d rows, want 0", len(store.rows))
	}
}

func TestPipeline_WindowReadFailureIsNotPersistError(t *testing.T) {
	store := newMemStore()
	store.listWindowErr = errors.New("replica gone")
	p := newPipeline(store, &fakeSource{source: domain.SourceGooglePlay, batch: playBatch()})

	_, err := p.Run(context.Background(), playRefs())
	if err == nil {
		t.Fatal("want an error from the failed window read")
	}
	if !errors.Is(err, store.listWindowErr) {
		t.Fatalf("want the window read error, got %v", err)
	}
	var pe *domain.PersistError
	if errors.As(err, &pe) {
		t.Fatalf("the batch was persisted; a read failure must not report as one: %v", err)
	}
	// the write itself went through before the read failed
	if len(store.rows) != 3 {
		t.Fatalf("store holds %d rows, want 3", len(store.rows))
	}
}

func TestPipeline_EmptyStoreAndSources(t *testing.T) {
	store := newMemStore()
	p := newPipeline(store, &fakeSource{
		source: domain.SourceGooglePlay,
		batch:  domain.Batch{Source: domain.SourceGooglePlay, AppID: bundle},
	})

	rep, err := p.Run(context.Background(), playRefs())
	if err != nil {
		t.Fatalf("zero new reviews is not an error: %v", err)
	}
	if rep.TotalReviews != 0 {
		t.Fatalf("total %d, want 0", rep.TotalReviews)
	}
	if rep.AverageRating != nil {
		t.Fatalf("average must be absent for an empty corpus, got %v", *rep.AverageRating)
	}
}
