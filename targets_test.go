// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBinIndexHalfOpen(t *testing.T) {
	edges := []float64{1, 2, 3}
	tests := []struct {
		x    float64
		want int64
	}{
		{1.0, 0},  // first edge opens bin 0
		{1.5, 0},
		{2.0, 1},  // interior edge belongs to the bin it opens
		{2.5, 1},
		{3.0, -1}, // final edge is out of range
		{0.999, -1},
		{3.001, -1},
		{math.Nextafter(2.0, 1.0), 0},
		{math.Nextafter(2.0, 3.0), 1},
		{math.Nextafter(1.0, 0.0), -1},
		{math.Nextafter(3.0, 2.0), 1},
		{math.Nextafter(3.0, 4.0), -1},
		{math.NaN(), -1},
		{math.Inf(1), -1},
		{math.Inf(-1), -1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, binIndexLinspace(tt.x, edges), "linspace x=%v", tt.x)
		assert.Equal(t, tt.want, binIndexSorted(tt.x, edges), "sorted x=%v", tt.x)
	}
}

// The arithmetic path and the binary-search path must agree bit for bit on
// uniform edges, including at every edge and its floating-point neighbors.
func TestBinIndexPathsAgree(t *testing.T) {
	edges := []float64{0, 0.1, 0.2, 0.30000000000000004, 0.4}
	probes := []float64{}
	for _, e := range edges {
		probes = append(probes,
			e,
			math.Nextafter(e, math.Inf(-1)),
			math.Nextafter(e, math.Inf(1)),
		)
	}
	for i := 0; i < 1000; i++ {
		probes = append(probes, -0.05+0.5*float64(i)/1000)
	}
	for _, x := range probes {
		assert.Equal(t, binIndexSorted(x, edges), binIndexLinspace(x, edges), "x=%v", x)
	}
}

func TestBinIndexIrregularEdges(t *testing.T) {
	edges := []float64{0, 1, 10, 100}
	assert.Equal(t, int64(0), binIndexSorted(0.5, edges))
	assert.Equal(t, int64(1), binIndexSorted(1, edges))
	assert.Equal(t, int64(2), binIndexSorted(99.999, edges))
	assert.Equal(t, int64(-1), binIndexSorted(100, edges))
	assert.False(t, isLinspace(edges))
}

func TestIsLinspace(t *testing.T) {
	assert.True(t, isLinspace([]float64{0, 1, 2, 3}))
	assert.True(t, isLinspace([]float64{-2, 0, 2}))
	assert.False(t, isLinspace([]float64{0, 1, 2.5}))
	assert.False(t, isLinspace([]float64{1}))
}

func TestSortedStrictlyAscending(t *testing.T) {
	assert.True(t, sortedStrictlyAscending([]float64{1, 2, 3}))
	assert.False(t, sortedStrictlyAscending([]float64{1, 1, 2}))
	assert.False(t, sortedStrictlyAscending([]float64{2, 1}))
	assert.True(t, sortedStrictlyAscending(nil))
}

func TestExclusiveCumsum(t *testing.T) {
	offs, total := exclusiveCumsum([]int64{3, 0, 2})
	assert.Equal(t, []int64{0, 3, 3}, offs)
	assert.Equal(t, int64(5), total)

	offs, total = exclusiveCumsum(nil)
	assert.Empty(t, offs)
	assert.Equal(t, int64(0), total)
}
