// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"math"

	"golang.org/x/exp/constraints"

	"github.com/raggeddata/ragged/errors"
)

// GroupByResult is a handle over data partitioned into one bucket per group,
// exposing the reduction methods. The underlying bucketed array is available
// via Buckets / Concat for callers that want the events themselves.
type GroupByResult struct {
	buckets *Buckets
	reg     *Registry
}

// GroupBy partitions a 1-D event table by the distinct values of the key
// coordinate (sorted ascending, NaN last) using the default registry.
func GroupBy(t *Table, key Dim) (*GroupByResult, error) {
	return defaultRegistry.GroupBy(t, key)
}

// GroupByBins partitions a 1-D event table into numeric bins over the edge
// variable's dimension using the default registry.
func GroupByBins(t *Table, edges *Variable) (*GroupByResult, error) {
	return defaultRegistry.GroupByBins(t, edges)
}

// GroupBy partitions t by the distinct values of the key coordinate.
// Grouping an empty table, or one whose key coordinate has no values, yields
// zero groups and no error.
func (r *Registry) GroupBy(t *Table, key Dim) (*GroupByResult, error) {
	rowDim, err := t.RowDim()
	if err != nil {
		return nil, err
	}
	groups, err := UniqueGroups(t.coords, rowDim, key, t.Rows())
	if err != nil {
		return nil, err
	}
	b, err := r.Bin(t, BinArgs{Groups: []*Variable{groups}})
	if err != nil {
		return nil, err
	}
	return &GroupByResult{buckets: b, reg: r}, nil
}

// GroupByBins partitions t into the numeric bins described by edges.
func (r *Registry) GroupByBins(t *Table, edges *Variable) (*GroupByResult, error) {
	b, err := r.Bin(t, BinArgs{Edges: []*Variable{edges}})
	if err != nil {
		return nil, err
	}
	return &GroupByResult{buckets: b, reg: r}, nil
}

// Buckets returns the grouped bucket variable.
func (g *GroupByResult) Buckets() *Buckets { return g.buckets }

// Concat returns the groups with their events concatenated in first-seen
// order: exactly the bucketed array, since the scatter already concatenated
// each group's rows.
func (g *GroupByResult) Concat() *Buckets { return g.buckets }

// Sum reduces each group to the sum of its data values. Variances, if
// present, sum alongside.
func (g *GroupByResult) Sum() (*Table, error) {
	b := g.buckets
	data := b.buffer.data
	pairs := b.ranges.IndexPairs()
	workers := g.reg.workersForRows(int(b.EventCount()))
	switch data.DType() {
	case DTypeFloat64:
		out, err := NewVariable(DTypeFloat64, b.ranges.sizes, data.Unit(), data.HasVariances())
		if err != nil {
			return nil, err
		}
		reduceBins(pairs, data.Float64s(), out.Float64s(), workers, 0, func(a, x float64) float64 { return a + x })
		if sv := data.Float64Variances(); sv != nil {
			reduceBins(pairs, sv, out.Float64Variances(), workers, 0, func(a, x float64) float64 { return a + x })
		}
		return g.resultTable(out)
	case DTypeInt64:
		out, err := NewVariable(DTypeInt64, b.ranges.sizes, data.Unit(), false)
		if err != nil {
			return nil, err
		}
		reduceBins(pairs, data.Int64s(), out.Int64s(), workers, 0, func(a, x int64) int64 { return a + x })
		return g.resultTable(out)
	case DTypeInt32:
		out, err := NewVariable(DTypeInt32, b.ranges.sizes, data.Unit(), false)
		if err != nil {
			return nil, err
		}
		reduceBins(pairs, data.Int32s(), out.Int32s(), workers, 0, func(a, x int32) int32 { return a + x })
		return g.resultTable(out)
	}
	return nil, errors.Newf(errors.ErrVariable, "cannot sum %s data", data.DType())
}

// Mean reduces each group to the arithmetic mean of its data values as
// float64; an empty group yields NaN. Variances, if present, become the
// variance of the mean (summed variance over the squared count).
func (g *GroupByResult) Mean() (*Table, error) {
	b := g.buckets
	data := b.buffer.data
	if !data.DType().IsNumeric() {
		return nil, errors.Newf(errors.ErrVariable, "cannot average %s data", data.DType())
	}
	vals, err := coordAsFloat64s(data)
	if err != nil {
		return nil, err
	}
	pairs := b.ranges.IndexPairs()
	workers := g.reg.workersForRows(int(b.EventCount()))
	out, err := NewVariable(DTypeFloat64, b.ranges.sizes, data.Unit(), data.HasVariances())
	if err != nil {
		return nil, err
	}
	reduceBins(pairs, vals, out.Float64s(), workers, 0, func(a, x float64) float64 { return a + x })
	means := out.Float64s()
	for i, p := range pairs {
		means[i] /= float64(p.Len())
	}
	if sv := data.Float64Variances(); sv != nil {
		reduceBins(pairs, sv, out.Float64Variances(), workers, 0, func(a, x float64) float64 { return a + x })
		vars := out.Float64Variances()
		for i, p := range pairs {
			n := float64(p.Len())
			vars[i] /= n * n
		}
	}
	return g.resultTable(out)
}

// Min reduces each group to its smallest data value; empty groups yield the
// dtype's identity (+Inf or the maximum integer).
func (g *GroupByResult) Min() (*Table, error) {
	return g.extremum(true)
}

// Max reduces each group to its largest data value; empty groups yield the
// dtype's identity (-Inf or the minimum integer).
func (g *GroupByResult) Max() (*Table, error) {
	return g.extremum(false)
}

func (g *GroupByResult) extremum(min bool) (*Table, error) {
	b := g.buckets
	data := b.buffer.data
	pairs := b.ranges.IndexPairs()
	workers := g.reg.workersForRows(int(b.EventCount()))
	switch data.DType() {
	case DTypeFloat64:
		out, err := NewVariable(DTypeFloat64, b.ranges.sizes, data.Unit(), false)
		if err != nil {
			return nil, err
		}
		if min {
			reduceBins(pairs, data.Float64s(), out.Float64s(), workers, math.Inf(1), minOf[float64])
		} else {
			reduceBins(pairs, data.Float64s(), out.Float64s(), workers, math.Inf(-1), maxOf[float64])
		}
		return g.resultTable(out)
	case DTypeInt64:
		out, err := NewVariable(DTypeInt64, b.ranges.sizes, data.Unit(), false)
		if err != nil {
			return nil, err
		}
		if min {
			reduceBins(pairs, data.Int64s(), out.Int64s(), workers, math.MaxInt64, minOf[int64])
		} else {
			reduceBins(pairs, data.Int64s(), out.Int64s(), workers, math.MinInt64, maxOf[int64])
		}
		return g.resultTable(out)
	case DTypeInt32:
		out, err := NewVariable(DTypeInt32, b.ranges.sizes, data.Unit(), false)
		if err != nil {
			return nil, err
		}
		if min {
			reduceBins(pairs, data.Int32s(), out.Int32s(), workers, math.MaxInt32, minOf[int32])
		} else {
			reduceBins(pairs, data.Int32s(), out.Int32s(), workers, math.MinInt32, maxOf[int32])
		}
		return g.resultTable(out)
	}
	return nil, errors.Newf(errors.ErrVariable, "cannot take extrema of %s data", data.DType())
}

// All reduces each group of bool data with logical AND; empty groups yield
// true.
func (g *GroupByResult) All() (*Table, error) {
	return g.boolReduce(true, func(a, x bool) bool { return a && x })
}

// Any reduces each group of bool data with logical OR; empty groups yield
// false.
func (g *GroupByResult) Any() (*Table, error) {
	return g.boolReduce(false, func(a, x bool) bool { return a || x })
}

func (g *GroupByResult) boolReduce(identity bool, op func(a, x bool) bool) (*Table, error) {
	b := g.buckets
	data := b.buffer.data
	if data.DType() != DTypeBool {
		return nil, errors.Newf(errors.ErrVariable, "logical reduction requires bool data, got %s", data.DType())
	}
	pairs := b.ranges.IndexPairs()
	workers := g.reg.workersForRows(int(b.EventCount()))
	out, err := NewVariable(DTypeBool, b.ranges.sizes, UnitNone, false)
	if err != nil {
		return nil, err
	}
	reduceBins(pairs, data.Bools(), out.Bools(), workers, identity, op)
	return g.resultTable(out)
}

// resultTable wraps a reduced variable with the group-level coords and masks.
func (g *GroupByResult) resultTable(data *Variable) (*Table, error) {
	return NewTable(data, g.buckets.coords.Copy(), g.buckets.masks.Copy())
}

// reduceBins folds each bucket's rows with op, in parallel over buckets
// (each output element is written by exactly one goroutine).
func reduceBins[T any](pairs []IndexPair, vals []T, out []T, workers int, identity T, op func(a, x T) T) {
	_ = parallelFor(workers, len(pairs), func(i int) error {
		acc := identity
		for row := pairs[i].Begin; row < pairs[i].End; row++ {
			acc = op(acc, vals[row])
		}
		out[i] = acc
		return nil
	})
}

func minOf[T constraints.Ordered](a, x T) T {
	if x < a {
		return x
	}
	return a
}

func maxOf[T constraints.Ordered](a, x T) T {
	if x > a {
		return x
	}
	return a
}
