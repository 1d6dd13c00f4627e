package domain

import (
	"context"
	"time"
)

// SourceClient is one storefront. Fetch returns the normalized batch for
// app, newest first, stopping at the window start, source exhaustion or max
// records. Unreachable or persistently rate-limited sources return a
// *SourceError; malformed raw records are skipped and counted, never fatal.
type SourceClient interface {
	Source() string
	Fetch(ctx context.Context, app AppRef, since time.Time, max int) (Batch, error)
}

type ReviewStore interface {
	// Write paths. Append is idempotent on the composite identity: rows
	// already present are left untouched (first write wins) and only the
	// number of new rows is returned.
	Append(ctx context.Context, rs []Review) (int, error)
	ExistingIDs(ctx context.Context, source, appID string, ids []string) (map[string]struct{}, error)

	// Read paths
	ListWindow(ctx context.Context, bundle string, since time.Time, limit int) ([]Review, error)
	ListReviews(ctx context.Context, bundle string, pg PageQuery) (ReviewsPage, error)
}

// Inference is a single-turn completion against a language model. The
// adapter owns timeout and transport concerns; callers treat any error as an
// *InferenceError and fall back.
type Inference interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Insights turns a scored corpus into themes, keywords, quotes and action
// suggestions. total is the corpus size the theme counts extrapolate to.
type Insights interface {
	Analyze(ctx context.Context, corpus []Review, total int) (InsightSet, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Unlock releases a held run lock.
type Unlock func(context.Context) error

// Locker serializes runs per app. Acquire returns ErrLockHeld while another
// holder is alive; the lock expires on its own after ttl.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Unlock, error)
}

// Delivery sends a built report somewhere. Failures never un-build the
// report; the caller records DeliveryFailed and moves on.
type Delivery interface {
	Send(ctx context.Context, rep AggregateReport, reviews []Review) error
}

type PageQuery struct {
	Limit  int
	Cursor *string
	Sort   string
}

type ReviewsPage struct {
	Items      []Review
	NextCursor *string
}
