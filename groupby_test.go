// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func groupedTable(t *testing.T) *Table {
	t.Helper()
	coords := DictOf("tag", FromStrings("row", []string{"b", "a", "b", "a", "b"}))
	tbl, err := NewTable(FromFloat64s("row", []float64{1, 2, 3, 4, 5}, UnitCounts), coords, nil)
	require.NoError(t, err)
	return tbl
}

func TestGroupBySum(t *testing.T) {
	g, err := GroupBy(groupedTable(t), "tag")
	require.NoError(t, err)

	out, err := g.Sum()
	require.NoError(t, err)
	// Groups sort ascending: a, b.
	assert.Equal(t, []float64{6, 9}, out.Data().Float64s())

	tags, ok := out.Coords().Get("tag")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, tags.Strings())
}

func TestGroupByMean(t *testing.T) {
	g, err := GroupBy(groupedTable(t), "tag")
	require.NoError(t, err)
	out, err := g.Mean()
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, out.Data().Float64s())
}

func TestGroupByMeanOfEmptyGroupIsNaN(t *testing.T) {
	tbl := groupedTable(t)
	b, err := Bin(tbl, BinArgs{Groups: []*Variable{FromStrings("tag", []string{"a", "missing"})}})
	require.NoError(t, err)
	g := &GroupByResult{buckets: b, reg: defaultRegistry}

	out, err := g.Mean()
	require.NoError(t, err)
	vals := out.Data().Float64s()
	assert.Equal(t, 3.0, vals[0])
	assert.True(t, math.IsNaN(vals[1]))
}

func TestGroupByMinMax(t *testing.T) {
	g, err := GroupBy(groupedTable(t), "tag")
	require.NoError(t, err)

	lo, err := g.Min()
	require.NoError(t, err)
	assert.Equal(t, []float64{2, 1}, lo.Data().Float64s())

	hi, err := g.Max()
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 5}, hi.Data().Float64s())
}

func TestGroupByAllAny(t *testing.T) {
	coords := DictOf("g", FromInt64s("row", []int64{0, 0, 1, 1}, UnitNone))
	data := FromBools("row", []bool{true, false, true, true})
	tbl, err := NewTable(data, coords, nil)
	require.NoError(t, err)

	g, err := GroupBy(tbl, "g")
	require.NoError(t, err)

	all, err := g.All()
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true}, all.Data().Bools())

	any, err := g.Any()
	require.NoError(t, err)
	assert.Equal(t, []bool{true, true}, any.Data().Bools())

	_, err = g.Sum()
	assert.Error(t, err, "bool data does not sum")
}

func TestGroupByIntSum(t *testing.T) {
	coords := DictOf("g", FromInt64s("row", []int64{2, 1, 2}, UnitNone))
	tbl, err := NewTable(FromInt64s("row", []int64{10, 20, 30}, UnitCounts), coords, nil)
	require.NoError(t, err)

	g, err := GroupBy(tbl, "g")
	require.NoError(t, err)
	out, err := g.Sum()
	require.NoError(t, err)
	assert.Equal(t, []int64{20, 40}, out.Data().Int64s())
	assert.Equal(t, DTypeInt64, out.Data().DType())
}

func TestGroupBySumCarriesVariances(t *testing.T) {
	data, err := FromFloat64sWithVariances("row",
		[]float64{1, 2, 3}, []float64{0.1, 0.2, 0.3}, UnitCounts)
	require.NoError(t, err)
	coords := DictOf("g", FromInt64s("row", []int64{0, 0, 1}, UnitNone))
	tbl, err := NewTable(data, coords, nil)
	require.NoError(t, err)

	g, err := GroupBy(tbl, "g")
	require.NoError(t, err)
	out, err := g.Sum()
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 3}, out.Data().Float64s())
	assert.InDeltaSlice(t, []float64{0.3, 0.3}, out.Data().Float64Variances(), 1e-12)
}

func TestGroupByBins(t *testing.T) {
	tbl := eventTable(t, []float64{1, 2, 3}, []float64{0.1, 0.6, 0.7})
	g, err := GroupByBins(tbl, edges1D("x", []float64{0, 0.5, 1}))
	require.NoError(t, err)
	out, err := g.Sum()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 5}, out.Data().Float64s())
}

func TestGroupByEmptyTable(t *testing.T) {
	coords := DictOf("tag", FromStrings("row", nil))
	tbl, err := NewTable(FromFloat64s("row", nil, UnitCounts), coords, nil)
	require.NoError(t, err)

	g, err := GroupBy(tbl, "tag")
	require.NoError(t, err)
	assert.Equal(t, 0, g.Buckets().NumBins())

	out, err := g.Sum()
	require.NoError(t, err)
	assert.Equal(t, 0, out.Data().Volume())
}

func TestUniqueGroupsNaNSortsLast(t *testing.T) {
	coords := DictOf("v", FromFloat64s("row", []float64{2, math.NaN(), 1, 2, math.NaN()}, UnitNone))
	u, err := UniqueGroups(coords, "row", "v", 5)
	require.NoError(t, err)

	vals := u.Float64s()
	require.Len(t, vals, 3)
	assert.Equal(t, []float64{1, 2}, vals[:2])
	assert.True(t, math.IsNaN(vals[2]))
}

// NaN coordinate values group together under a NaN group entry.
func TestGroupByNaNGroup(t *testing.T) {
	coords := DictOf("v", FromFloat64s("row", []float64{1, math.NaN(), math.NaN()}, UnitNone))
	tbl, err := NewTable(FromFloat64s("row", []float64{10, 20, 30}, UnitCounts), coords, nil)
	require.NoError(t, err)

	g, err := GroupBy(tbl, "v")
	require.NoError(t, err)
	b := g.Buckets()
	require.Equal(t, 2, b.NumBins())
	assert.Equal(t, []float64{10}, cellData(t, b, 0))
	assert.Equal(t, []float64{20, 30}, cellData(t, b, 1))
}
