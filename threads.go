// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"golang.org/x/sync/errgroup"
)

// workersForRows picks a worker count from the tier table. The tiers exist
// to keep small inputs on one goroutine; the crossover points are tuning
// constants.
func (r *Registry) workersForRows(rows int) int {
	for _, t := range r.threadTiers {
		if rows > t.Rows {
			return t.Workers
		}
	}
	return 1
}

// fabricateChunks splits [0,rows) into n contiguous, non-overlapping,
// near-equal spans. This is the threading adapter for plain event input: the
// fabricated spans act as temporary buckets so the bucket-aware binning code
// can run data-parallel. The boundaries carry no semantic meaning and never
// appear in caller-visible results.
func fabricateChunks(rows, n int) []IndexPair {
	if n < 1 {
		n = 1
	}
	if n > rows {
		n = rows
	}
	if rows == 0 {
		return []IndexPair{{}}
	}
	out := make([]IndexPair, 0, n)
	base := rows / n
	rem := rows % n
	begin := 0
	for i := 0; i < n; i++ {
		size := base
		if i < rem {
			size++
		}
		out = append(out, IndexPair{Begin: int64(begin), End: int64(begin + size)})
		begin += size
	}
	return out
}

// parallelFor runs fn(i) for i in [0,n) on up to workers goroutines,
// returning the first error. Callers guarantee disjoint write regions per i.
func parallelFor(workers, n int, fn func(i int) error) error {
	if workers <= 1 || n <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	var eg errgroup.Group
	eg.SetLimit(workers)
	for i := 0; i < n; i++ {
		i := i
		eg.Go(func() error { return fn(i) })
	}
	return eg.Wait()
}
