// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"math"
	"sort"

	"github.com/raggeddata/ragged/errors"
)

// binIndexLinspace computes the target bin of x against uniformly spaced
// edges via index arithmetic. Every bin is half-open [low,high); a value
// equal to an interior edge lands in the bin whose lower edge it is, and a
// value equal to the final edge is out of range. Floating-point rounding in
// the division is repaired against the exact edge values so the result
// matches binIndexSorted bit for bit, including at nextafter neighbors of
// the edges.
func binIndexLinspace(x float64, edges []float64) int64 {
	low, high := edges[0], edges[len(edges)-1]
	if math.IsNaN(x) || math.IsInf(x, 0) || x < low || x >= high {
		return -1
	}
	nbin := len(edges) - 1
	i := int64((x - low) / (high - low) * float64(nbin))
	if i < 0 {
		i = 0
	} else if i >= int64(nbin) {
		i = int64(nbin) - 1
	}
	// Repair off-by-one from division rounding.
	if x < edges[i] {
		i--
	} else if x >= edges[i+1] {
		i++
	}
	return i
}

// binIndexSorted computes the target bin of x against irregular sorted edges
// by binary search, with the same half-open convention as binIndexLinspace.
func binIndexSorted(x float64, edges []float64) int64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return -1
	}
	// upper_bound: first edge strictly greater than x.
	i := int64(sort.Search(len(edges), func(k int) bool { return edges[k] > x }))
	i--
	if i < 0 || i >= int64(len(edges)-1) {
		return -1
	}
	return i
}

// evtAxis is an event-sourced output axis: a kernel mapping a buffer row to
// a sub-bin index, and the axis' stride in the linearized output bin space.
type evtAxis struct {
	stride int64
	kernel func(row int) int64
}

// binAxis is a bin-sourced output axis: the surviving component of the input
// bin's position. For joined and erased input dims the component is constant
// zero, so they carry no axis at all.
type binAxis struct {
	stride   int64 // output stride
	inStride int64 // input bin-space stride
	inSize   int64
}

// targetBuilder computes, for every input row (or input bin), the linear
// index of its output bin, composing all axis actions in plan order. A
// negative target drops the contribution.
type targetBuilder struct {
	out Sizes
	evt []evtAxis
	bin []binAxis
}

// newTargetBuilder resolves the plan's actions against the buffer's event
// coordinates (coords) and the input bin shape. Kernel dispatch happens
// here, once per axis, not per element.
func newTargetBuilder(p *binPlan, coords *Dict, rowDim Dim, rows int, binSizes Sizes) (*targetBuilder, error) {
	tb := &targetBuilder{out: p.out}
	outStrides := p.out.strides()
	inStrides := binSizes.strides()
	for i, a := range p.actions {
		stride := int64(outStrides[i])
		switch a.kind {
		case actionGroup:
			kernel := a.grouper.kernel
			tb.evt = append(tb.evt, evtAxis{stride: stride, kernel: kernel})
		case actionBin:
			coord, err := eventCoord(coords, rowDim, a.dim, rows, "binning")
			if err != nil {
				return nil, err
			}
			xs, err := coordAsFloat64s(coord)
			if err != nil {
				return nil, errors.Wrapf(err, "dimension %s", a.dim)
			}
			edges := a.edges
			if a.linspace {
				tb.evt = append(tb.evt, evtAxis{stride: stride, kernel: func(row int) int64 {
					return binIndexLinspace(xs[row], edges)
				}})
			} else {
				tb.evt = append(tb.evt, evtAxis{stride: stride, kernel: func(row int) int64 {
					return binIndexSorted(xs[row], edges)
				}})
			}
		case actionExisting:
			j := binSizes.Index(a.dim)
			tb.bin = append(tb.bin, binAxis{
				stride:   stride,
				inStride: int64(inStrides[j]),
				inSize:   int64(binSizes.sizes[j]),
			})
		case actionJoin, actionErase:
			// Constant zero component.
		}
	}
	return tb, nil
}

// binBase returns the output-space base index contributed by input bin c's
// surviving position components.
func (tb *targetBuilder) binBase(c int) int64 {
	var base int64
	for _, ax := range tb.bin {
		comp := (int64(c) / ax.inStride) % ax.inSize
		base += comp * ax.stride
	}
	return base
}

// eventTarget folds the event-sourced axes for one row on top of base.
// Any rejecting axis (-1) rejects the row.
func (tb *targetBuilder) eventTarget(base int64, row int) int64 {
	t := base
	for _, ax := range tb.evt {
		s := ax.kernel(row)
		if s < 0 {
			return -1
		}
		t += s * ax.stride
	}
	return t
}

// fillTargets fills the caller-owned indices slice (one entry per buffer
// row, pre-initialized to -1) with output bin targets for every row inside
// some input span. spans[c] is input bin c's row range; base components for
// bin-sourced axes come from c. Rows under rowMask and whole bins under
// binMask are dropped. Spans are disjoint, so the per-span work runs in
// parallel.
func (tb *targetBuilder) fillTargets(indices []int64, spans []IndexPair, rowMask, binMask []bool, workers int) {
	_ = parallelFor(workers, len(spans), func(c int) error {
		if binMask != nil && binMask[c] {
			return nil
		}
		base := tb.binBase(c)
		for row := spans[c].Begin; row < spans[c].End; row++ {
			if rowMask != nil && rowMask[row] {
				continue
			}
			indices[row] = tb.eventTarget(base, int(row))
		}
		return nil
	})
}

// buildBinTargets computes per-input-bin targets for plans with no
// event-sourced actions (the existing/erase/join-only fast path): whole
// input bins flow to single output bins, so no per-row index is ever
// materialized.
func (tb *targetBuilder) buildBinTargets(nbins int) []int64 {
	out := make([]int64, nbins)
	for c := range out {
		out[c] = tb.binBase(c)
	}
	return out
}

// irreducibleRowMask ORs together all masks that depend on the row
// dimension. Events under the combined mask are dropped before the row
// dimension's contents are re-partitioned; the constituent masks are then
// discarded from the output buffer.
func irreducibleRowMask(masks *Dict, rowDim Dim, rows int) ([]bool, []string, error) {
	var combined []bool
	var applied []string
	err := masks.Each(func(key string, v *Variable) error {
		if !v.sizes.Contains(rowDim) {
			return nil
		}
		if v.sizes.Rank() != 1 {
			return errors.Newf(errors.ErrDimension, "mask %s: row-dimension masks must be 1-D", key)
		}
		if v.Volume() != rows {
			return errors.Newf(errors.ErrDimension, "mask %s has %d elements for %d rows", key, v.Volume(), rows)
		}
		if combined == nil {
			combined = make([]bool, rows)
		}
		for i, m := range v.Bools() {
			combined[i] = combined[i] || m
		}
		applied = append(applied, key)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return combined, applied, nil
}
