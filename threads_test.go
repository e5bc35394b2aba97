// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkersForRows(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		rows, want int
	}{
		{0, 1},
		{100_000, 1},
		{100_001, 2},
		{200_001, 4},
		{1_000_001, 8},
		{4_000_001, 16},
		{8_000_001, 24},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.workersForRows(tt.rows), "rows=%d", tt.rows)
	}

	custom := r.WithThreadTiers([]ThreadTier{{Rows: 10, Workers: 3}})
	assert.Equal(t, 3, custom.workersForRows(11))
	assert.Equal(t, 1, custom.workersForRows(10))
	// The original registry is untouched.
	assert.Equal(t, 1, r.workersForRows(11))
}

func TestFabricateChunks(t *testing.T) {
	for _, tt := range []struct {
		rows, n int
	}{
		{10, 3}, {10, 1}, {3, 10}, {1, 1}, {100, 7},
	} {
		t.Run(fmt.Sprintf("rows=%d n=%d", tt.rows, tt.n), func(t *testing.T) {
			chunks := fabricateChunks(tt.rows, tt.n)
			// Contiguous cover of [0,rows), near-equal sizes.
			require.NotEmpty(t, chunks)
			assert.Equal(t, int64(0), chunks[0].Begin)
			assert.Equal(t, int64(tt.rows), chunks[len(chunks)-1].End)
			var minLen, maxLen int64 = int64(tt.rows), 0
			for i, c := range chunks {
				if i > 0 {
					assert.Equal(t, chunks[i-1].End, c.Begin)
				}
				if c.Len() < minLen {
					minLen = c.Len()
				}
				if c.Len() > maxLen {
					maxLen = c.Len()
				}
			}
			assert.LessOrEqual(t, maxLen-minLen, int64(1))
			assert.LessOrEqual(t, len(chunks), max(tt.rows, 1))
		})
	}

	// Zero rows still yields one empty span so loops stay uniform.
	chunks := fabricateChunks(0, 4)
	require.Len(t, chunks, 1)
	assert.Equal(t, int64(0), chunks[0].Len())
}

func TestParallelForVisitsAll(t *testing.T) {
	for _, workers := range []int{1, 4} {
		var sum int64
		err := parallelFor(workers, 100, func(i int) error {
			atomic.AddInt64(&sum, int64(i))
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, int64(4950), sum, "workers=%d", workers)
	}
}

func TestParallelForPropagatesError(t *testing.T) {
	boom := fmt.Errorf("boom")
	err := parallelFor(4, 50, func(i int) error {
		if i == 17 {
			return boom
		}
		return nil
	})
	assert.Equal(t, boom, err)

	err = parallelFor(1, 50, func(i int) error {
		if i == 17 {
			return boom
		}
		return nil
	})
	assert.Equal(t, boom, err)
}
