package app

import "reviewpulse/internal/domain"

// Dedupe splits a batch against the identities already stored for its
// (source, app_id) scope. First write wins: duplicates are dropped, the
// stored row is never touched, and repeats inside the batch itself collapse
// to their first occurrence.
func Dedupe(batch domain.Batch, known map[string]struct{}) (fresh []domain.Review, duplicates int) {
	seen := make(map[string]struct{}, len(batch.Reviews))
	for _, rv := range batch.Reviews {
		if _, dup := known[rv.ReviewID]; dup {
			duplicates++
			continue
		}
		if _, dup := seen[rv.ReviewID]; dup {
			duplicates++
			continue
		}
		seen[rv.ReviewID] = struct{}{}
		fresh = append(fresh, rv)
	}
	return fresh, duplicates
}
