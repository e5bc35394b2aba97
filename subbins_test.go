// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spansOf(pairs ...IndexPair) [][]IndexPair {
	out := make([][]IndexPair, len(pairs))
	for i, p := range pairs {
		out[i] = []IndexPair{p}
	}
	return out
}

func TestSubBinSizes(t *testing.T) {
	// Two chunks, three output bins. Chunk 0 hits bins 0 and 1, chunk 1 hits
	// bins 1 and 2; row 4 is dropped.
	targets := []int64{0, 1, 0, 1, -1, 2}
	chunks := spansOf(IndexPair{Begin: 0, End: 3}, IndexPair{Begin: 3, End: 6})

	s := newSubBinSizes(chunks, targets, 3, 1)

	assert.Equal(t, []int64{2, 2, 1}, s.outSizes)
	assert.Equal(t, []int64{0, 2, 4}, s.outOffsets)
	assert.Equal(t, int64(5), s.total)

	// Each chunk only pays for its own target window.
	assert.Equal(t, []int64{0, 1}, []int64{s.lo[0], s.lo[1]})
	assert.Equal(t, []int64{2, 3}, []int64{s.hi[0], s.hi[1]})

	// Write bases: chunk 0 owns bin0 rows [0,2) and bin1 row 2; chunk 1
	// follows at bin1 row 3 and bin2 row 4.
	assert.Equal(t, []int64{0, 2}, s.csr[s.csrOff[0]:s.csrOff[1]])
	assert.Equal(t, []int64{3, 4}, s.csr[s.csrOff[1]:s.csrOff[2]])
}

func TestSubBinSizesAllDropped(t *testing.T) {
	targets := []int64{-1, -1}
	s := newSubBinSizes(spansOf(IndexPair{Begin: 0, End: 2}), targets, 4, 1)
	assert.Equal(t, int64(0), s.total)
	assert.Equal(t, int64(0), s.hi[0]-s.lo[0], "empty chunk pays for no window")
}

func TestSubBinSizesStableAcrossWorkers(t *testing.T) {
	n := 1000
	targets := make([]int64, n)
	for i := range targets {
		targets[i] = int64(i % 10)
	}
	chunks := spansOf(fabricateChunks(n, 8)...)

	a := newSubBinSizes(chunks, targets, 10, 1)
	b := newSubBinSizes(chunks, targets, 10, 8)

	require.Equal(t, a.outSizes, b.outSizes)
	require.Equal(t, a.outOffsets, b.outOffsets)
	assert.Equal(t, a.csr, b.csr, "write bases are assigned in input-chunk order regardless of workers")
}
