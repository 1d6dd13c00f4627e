package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"reviewpulse/internal/adapters/observability"
	"reviewpulse/internal/analysis"
	"reviewpulse/internal/domain"
)

// RunOptions bound one pipeline run.
type RunOptions struct {
	ReportOptions
	MaxReviews int // combined cap across sources, most recent kept
	Workers    int // sentiment scoring fan-out
	LockTTL    time.Duration
}

func (o RunOptions) withDefaults() RunOptions {
	o.ReportOptions = o.ReportOptions.withDefaults()
	if o.MaxReviews <= 0 {
		o.MaxReviews = 5000
	}
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 15 * time.Minute
	}
	return o
}

// Pipeline is one ingestion run: fetch both storefronts, dedupe against the
// store, score, persist, then aggregate the stored window into a report.
// Source and inference failures degrade; only persistence aborts.
type Pipeline struct {
	sources  map[string]domain.SourceClient
	store    domain.ReviewStore
	locker   domain.Locker
	insights domain.Insights
	opts     RunOptions
	log      zerolog.Logger
}

func NewPipeline(sources []domain.SourceClient, store domain.ReviewStore, locker domain.Locker,
	ins domain.Insights, opts RunOptions, log zerolog.Logger) *Pipeline {
	byName := make(map[string]domain.SourceClient, len(sources))
	for _, s := range sources {
		byName[s.Source()] = s
	}
	return &Pipeline{
		sources:  byName,
		store:    store,
		locker:   locker,
		insights: ins,
		opts:     opts.withDefaults(),
		log:      log,
	}
}

// Run executes the pipeline for one app. refs name the app's per-source
// identities; refs whose source has no registered client are skipped. The
// returned report is the core's terminal artifact (state Built); delivery is
// the caller's concern.
func (p *Pipeline) Run(ctx context.Context, refs []domain.AppRef) (domain.AggregateReport, error) {
	if len(refs) == 0 {
		return domain.AggregateReport{}, errors.New("pipeline: no app refs")
	}
	bundle := refs[0].Bundle

	if p.locker != nil {
		unlock, err := p.locker.Acquire(ctx, bundle, p.opts.LockTTL)
		if err != nil {
			return domain.AggregateReport{}, err
		}
		defer func() { _ = unlock(ctx) }()
	}

	runID := uuid.NewString()
	log := p.log.With().Str("run_id", runID).Str("bundle", bundle).Logger()
	since := time.Now().UTC().AddDate(0, 0, -p.opts.WindowDays)
	stats := domain.RunStats{}

	// Fetching: the sources are independent, so they run concurrently and
	// merge only at the dedupe stage. A failing source contributes an empty
	// batch; a cancelled context aborts the run with nothing persisted.
	log.Info().Str("state", string(domain.StateFetching)).Time("since", since).Msg("run state")
	batches, srcErrs, err := p.fetchAll(ctx, refs, since)
	if err != nil {
		return domain.AggregateReport{}, err
	}
	stats.SourceErrors = srcErrs

	var sources []string
	for _, b := range batches {
		stats.Fetched += len(b.Reviews)
		stats.Malformed += b.Malformed
		sources = append(sources, b.Source)
		observability.ObservePipeline(b.Source, "fetched", len(b.Reviews))
		observability.ObservePipeline(b.Source, "malformed", b.Malformed)
	}

	// Deduplicating: known identities load once per (source, app_id) pair.
	log.Info().Str("state", string(domain.StateDeduplicating)).Msg("run state")
	var fresh []domain.Review
	for _, b := range batches {
		ids := make([]string, 0, len(b.Reviews))
		for _, rv := range b.Reviews {
			ids = append(ids, rv.ReviewID)
		}
		known, err := p.store.ExistingIDs(ctx, b.Source, b.AppID, ids)
		if err != nil {
			return domain.AggregateReport{}, &domain.PersistError{Err: err}
		}
		f, dups := Dedupe(b, known)
		stats.Duplicates += dups
		observability.ObservePipeline(b.Source, "duplicate", dups)
		fresh = append(fresh, f...)
	}
	fresh = capMostRecent(fresh, p.opts.MaxReviews)

	// Enriching: scoring is pure per-review work, fanned out over a bounded
	// pool with no ordering requirement.
	log.Info().Str("state", string(domain.StateEnriching)).Int("new", len(fresh)).Msg("run state")
	if err := p.scoreAll(ctx, fresh); err != nil {
		// cancelled mid-scoring: abort before persisting partially scored rows
		return domain.AggregateReport{}, err
	}

	written, err := p.store.Append(ctx, fresh)
	stats.Persisted = written
	if err != nil {
		return domain.AggregateReport{}, &domain.PersistError{Written: written, Err: err}
	}
	observability.ObservePipeline("all", "persisted", written)

	// Aggregating: scope is the stored window, so re-runs report the same
	// totals whether or not anything new arrived.
	log.Info().Str("state", string(domain.StateAggregating)).Msg("run state")
	corpus, err := p.store.ListWindow(ctx, bundle, since, p.opts.MaxReviews)
	if err != nil {
		// the batch is already persisted; a failed window read is not a
		// persistence failure
		return domain.AggregateReport{}, fmt.Errorf("load aggregation window: %w", err)
	}

	meta := ReportMeta{
		RunID:   runID,
		AppName: appName(refs),
		Bundle:  bundle,
		Sources: sources,
		Stats:   stats,
	}
	rep := BuildReport(ctx, corpus, p.insights, meta, p.opts.ReportOptions)

	log.Info().Str("state", string(domain.StateBuilt)).
		Int("fetched", stats.Fetched).
		Int("duplicates", stats.Duplicates).
		Int("malformed", stats.Malformed).
		Int("persisted", stats.Persisted).
		Int("source_errors", stats.SourceErrors).
		Bool("enhanced", rep.Stats.Enhanced).
		Int("total_reviews", rep.TotalReviews).
		Msg("run state")
	return rep, nil
}

// fetchAll runs every matched source concurrently. Only context cancellation
// is fatal; SourceErrors are logged, counted and absorbed.
func (p *Pipeline) fetchAll(ctx context.Context, refs []domain.AppRef, since time.Time) ([]domain.Batch, int, error) {
	type slot struct {
		batch domain.Batch
		fail  bool
	}

	var matched []domain.AppRef
	for _, ref := range refs {
		if _, ok := p.sources[ref.Source]; ok {
			matched = append(matched, ref)
		}
	}

	slots := make([]slot, len(matched))
	g, gctx := errgroup.WithContext(ctx)
	for i, ref := range matched {
		i, ref := i, ref
		g.Go(func() error {
			src := p.sources[ref.Source]
			b, err := src.Fetch(gctx, ref, since, p.opts.MaxReviews)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.log.Warn().Err(err).Str("source", ref.Source).Msg("source unavailable, continuing without it")
				observability.ObserveSourceFailure(ref.Source)
				slots[i] = slot{batch: domain.Batch{Source: ref.Source, AppID: ref.AppID}, fail: true}
				return nil
			}
			slots[i] = slot{batch: b}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	batches := make([]domain.Batch, 0, len(slots))
	fails := 0
	for _, s := range slots {
		if s.fail {
			fails++
		}
		batches = append(batches, s.batch)
	}
	return batches, fails, nil
}

func (p *Pipeline) scoreAll(ctx context.Context, rs []domain.Review) error {
	sem := semaphore.NewWeighted(int64(p.opts.Workers))
	var wg sync.WaitGroup
	var acqErr error
	for i := range rs {
		if err := sem.Acquire(ctx, 1); err != nil {
			acqErr = err
			break
		}
		wg.Add(1)
		go func(rv *domain.Review) {
			defer wg.Done()
			defer sem.Release(1)
			rv.Score, rv.Sentiment = analysis.Score(rv.Content)
		}(&rs[i])
	}
	wg.Wait()
	return acqErr
}

// capMostRecent keeps only the newest n reviews across all sources.
func capMostRecent(rs []domain.Review, n int) []domain.Review {
	if len(rs) <= n {
		return rs
	}
	sort.SliceStable(rs, func(i, j int) bool {
		if rs[i].ReviewDate.Equal(rs[j].ReviewDate) {
			return rs[i].Key() < rs[j].Key()
		}
		return rs[i].ReviewDate.After(rs[j].ReviewDate)
	})
	return rs[:n]
}

func appName(refs []domain.AppRef) string {
	for _, r := range refs {
		if r.Name != "" {
			return r.Name
		}
	}
	return refs[0].Bundle
}
