package fwdtree

import "sort"

// scored pairs an arbitrary key with a score, for the partial-sort pruning
// below.
type scored[K any] struct {
	key   K
	score float64
}

// capByScore keeps at most max highest-scoring entries. Ties at the cutoff
// break in an unspecified but deterministic-for-one-run order (sort.Slice
// is not guaranteed stable) — per DESIGN.md's Open Question decision #3,
// tests must never assert exact survivor identity at the cap, only that the
// cap is respected and counts are monotonic.
func capByScore[K any](items []scored[K], max int) []scored[K] {
	if max <= 0 || len(items) <= max {
		return items
	}
	sort.Slice(items, func(i, j int) bool { return items[i].score > items[j].score })
	return items[:max]
}
