// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVariable(t *testing.T) {
	v, err := NewVariable(DTypeFloat64, SizesOf([]Dim{"x", "y"}, []int{2, 3}), UnitCounts, true)
	require.NoError(t, err)
	assert.Equal(t, 6, v.Volume())
	assert.Equal(t, UnitCounts, v.Unit())
	assert.True(t, v.HasVariances())
	assert.Len(t, v.Float64s(), 6)
	assert.Len(t, v.Float64Variances(), 6)

	_, err = NewVariable(DTypeInt64, sizes1D("x", 2), UnitNone, true)
	assert.Error(t, err, "int dtypes cannot carry variances")
}

func TestFromSlicesAdopt(t *testing.T) {
	vals := []float64{1, 2, 3}
	v := FromFloat64s("x", vals, UnitNone)
	vals[0] = 9
	assert.Equal(t, 9.0, v.Float64s()[0], "constructor adopts, never copies")

	_, err := FromFloat64sWithVariances("x", []float64{1, 2}, []float64{1}, UnitNone)
	assert.Error(t, err)
}

func TestVariableSliceOuterIsView(t *testing.T) {
	v := FromFloat64s("x", []float64{0, 1, 2, 3, 4}, UnitNone)
	s, err := v.Slice("x", 1, 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3}, s.Float64s())

	// The slice views v's store until someone writes.
	v.Float64s()[2] = 99
	assert.Equal(t, 99.0, s.Float64s()[1])
}

func TestVariableOwnCopiesSharedStore(t *testing.T) {
	v := FromFloat64s("x", []float64{0, 1, 2, 3}, UnitNone)
	s, err := v.Slice("x", 0, 2)
	require.NoError(t, err)

	s.Own().Float64s()[0] = 42
	assert.Equal(t, 0.0, v.Float64s()[0], "writing an owned slice must not touch the origin")
	assert.Equal(t, 42.0, s.Float64s()[0])
}

func TestVariableSliceInnerCopies(t *testing.T) {
	v, err := NewVariable(DTypeInt64, SizesOf([]Dim{"x", "y"}, []int{2, 3}), UnitNone, false)
	require.NoError(t, err)
	copy(v.Int64s(), []int64{0, 1, 2, 10, 11, 12})

	s, err := v.Slice("y", 1, 3)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 11, 12}, s.Int64s())

	v.Int64s()[1] = 99
	assert.Equal(t, int64(1), s.Int64s()[0], "inner-dim slice holds its own storage")

	_, err = v.Slice("missing", 0, 1)
	assert.Error(t, err)
	_, err = v.Slice("y", 2, 1)
	assert.Error(t, err)
	_, err = v.Slice("y", 0, 4)
	assert.Error(t, err)
}

func TestVariableBroadcast(t *testing.T) {
	v := FromFloat64s("y", []float64{1, 2, 3}, UnitNone)
	target := SizesOf([]Dim{"x", "y"}, []int{2, 3})
	b, err := v.Broadcast(target)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 1, 2, 3}, b.Float64s())

	// Extent mismatch and missing target dim both fail.
	_, err = v.Broadcast(SizesOf([]Dim{"x", "y"}, []int{2, 4}))
	assert.Error(t, err)
	_, err = v.Broadcast(SizesOf([]Dim{"x"}, []int{2}))
	assert.Error(t, err)
}

func TestVariableDeepCopy(t *testing.T) {
	v, err := FromFloat64sWithVariances("x", []float64{1, 2}, []float64{0.1, 0.2}, UnitCounts)
	require.NoError(t, err)
	c := v.DeepCopy()
	c.Float64s()[0] = 9
	c.Float64Variances()[0] = 9

	assert.Equal(t, 1.0, v.Float64s()[0])
	assert.Equal(t, 0.1, v.Float64Variances()[0])
	if diff := cmp.Diff([]float64{9, 2}, c.Float64s()); diff != "" {
		t.Fatalf("unexpected values (-want +got):\n%s", diff)
	}
}

func TestVariableEqual(t *testing.T) {
	nan := math.NaN()
	a := FromFloat64s("x", []float64{1, nan}, UnitCounts)
	b := FromFloat64s("x", []float64{1, nan}, UnitCounts)
	assert.True(t, a.Equal(b), "NaN compares equal to NaN")

	assert.False(t, a.Equal(FromFloat64s("x", []float64{1, 2}, UnitCounts)))
	assert.False(t, a.Equal(FromFloat64s("y", []float64{1, nan}, UnitCounts)))
	assert.False(t, a.Equal(FromFloat64s("x", []float64{1, nan}, UnitNone)))

	withVar, err := FromFloat64sWithVariances("x", []float64{1, nan}, []float64{0, 0}, UnitCounts)
	require.NoError(t, err)
	assert.False(t, a.Equal(withVar))
}

func TestVariableIsEdges(t *testing.T) {
	sizes := SizesOf([]Dim{"row"}, []int{4})
	edges := FromFloat64s("row", []float64{0, 1, 2, 3, 4}, UnitNone)
	values := FromFloat64s("row", []float64{0, 1, 2, 3}, UnitNone)
	assert.True(t, edges.IsEdges(sizes, "row"))
	assert.False(t, values.IsEdges(sizes, "row"))
	assert.False(t, edges.IsEdges(sizes, "other"))
}
