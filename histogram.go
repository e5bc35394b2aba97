// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"github.com/raggeddata/ragged/errors"
)

// Histogram reduces a 1-D event table to a dense table of per-bin sums over
// the given edges, using the default registry. Counting is histogramming a
// table whose data column is all ones.
func Histogram(t *Table, edges *Variable) (*Table, error) {
	return defaultRegistry.Histogram(t, edges)
}

// HistogramBuckets reduces bucketed data to a dense table whose dims are the
// input bin dims plus the new edge dim, using the default registry.
func HistogramBuckets(b *Buckets, edges *Variable) (*Table, error) {
	return defaultRegistry.HistogramBuckets(b, edges)
}

// Histogram computes per-bin sums of t's data values over edges, with the
// same half-open boundary semantics and the same NaN/Inf/out-of-range and
// mask dropping as Bin. Variances, if present, sum alongside. The output
// data column is float64.
//
// The accumulation runs in parallel with one private accumulator per chunk
// when the combined accumulator footprint stays under the registry's
// histogram threshold, and sequentially otherwise.
func (r *Registry) Histogram(t *Table, edges *Variable) (*Table, error) {
	rowDim, err := t.RowDim()
	if err != nil {
		return nil, err
	}
	rows := t.Rows()
	plan, err := newBinPlan(t.coords, rowDim, rows, Sizes{}, nil, BinArgs{Edges: []*Variable{edges}})
	if err != nil {
		return nil, err
	}
	tb, err := newTargetBuilder(plan, t.coords, rowDim, rows, Sizes{})
	if err != nil {
		return nil, err
	}
	rowMask, _, err := irreducibleRowMask(t.masks, rowDim, rows)
	if err != nil {
		return nil, err
	}
	vals, varis, err := histSource(t.data)
	if err != nil {
		return nil, err
	}

	workers := r.workersForRows(rows)
	chunks := fabricateChunks(rows, workers)
	indices := makeTargets(rows)
	tb.fillTargets(indices, chunks, rowMask, nil, workers)

	nbin := plan.out.Volume()
	sums := make([]float64, nbin)
	var sumVars []float64
	if varis != nil {
		sumVars = make([]float64, nbin)
	}
	if workers > 1 && len(chunks)*nbin <= r.histThreshold {
		r.log.Debugf("histogram: %d rows -> %d bins, %d parallel accumulators", rows, nbin, len(chunks))
		parts := make([][]float64, len(chunks))
		varParts := make([][]float64, len(chunks))
		_ = parallelFor(workers, len(chunks), func(c int) error {
			parts[c] = make([]float64, nbin)
			if varis != nil {
				varParts[c] = make([]float64, nbin)
			}
			accumulateHist(parts[c], varParts[c], indices, vals, varis, chunks[c])
			return nil
		})
		for c := range parts {
			for i, x := range parts[c] {
				sums[i] += x
			}
			if varis != nil {
				for i, x := range varParts[c] {
					sumVars[i] += x
				}
			}
		}
	} else {
		r.log.Debugf("histogram: %d rows -> %d bins, sequential accumulation", rows, nbin)
		accumulateHist(sums, sumVars, indices, vals, varis, IndexPair{Begin: 0, End: int64(rows)})
	}
	return histTable(plan, sums, sumVars, t.data.Unit(), nil, nil)
}

// HistogramBuckets sums each input bin's events into the edge bins, keeping
// the input bin dims: the new edge dim comes first in the output shape,
// followed by the surviving input bin dims, matching Rebin's layout.
// Histogramming over an existing bin dim re-partitions that dim, like Rebin.
func (r *Registry) HistogramBuckets(b *Buckets, edges *Variable) (*Table, error) {
	buf := b.buffer
	rowDim := b.dim
	rows, _ := buf.Sizes().At(rowDim)
	binSizes := b.ranges.sizes

	plan, err := newBinPlan(buf.coords, rowDim, rows, binSizes, b.coords, BinArgs{Edges: []*Variable{edges}})
	if err != nil {
		return nil, err
	}
	if err := checkCoordConflicts(plan, b.coords); err != nil {
		return nil, err
	}
	binMask, err := binLevelMask(b.masks, plan.affected(), binSizes)
	if err != nil {
		return nil, err
	}
	tb, err := newTargetBuilder(plan, buf.coords, rowDim, rows, binSizes)
	if err != nil {
		return nil, err
	}
	rowMask, _, err := irreducibleRowMask(buf.masks, rowDim, rows)
	if err != nil {
		return nil, err
	}
	vals, varis, err := histSource(buf.data)
	if err != nil {
		return nil, err
	}

	nbin := plan.out.Volume()
	sums := make([]float64, nbin)
	var sumVars []float64
	if varis != nil {
		sumVars = make([]float64, nbin)
	}
	spans := b.ranges.IndexPairs()
	// Input bins write disjoint output regions only while no input bin dim is
	// re-partitioned; otherwise bins sharing surviving position components
	// land on the same output rows and the accumulation must serialize.
	workers := r.workersForRows(int(b.EventCount()))
	if dimsIntersect(binSizes, plan.affected()) {
		workers = 1
	}
	r.log.Debugf("histogram: %d bins -> %s on %d workers", len(spans), plan.out, workers)
	_ = parallelFor(workers, len(spans), func(c int) error {
		if binMask != nil && binMask[c] {
			return nil
		}
		base := tb.binBase(c)
		for row := spans[c].Begin; row < spans[c].End; row++ {
			if rowMask != nil && rowMask[row] {
				continue
			}
			t := tb.eventTarget(base, int(row))
			if t < 0 {
				continue
			}
			sums[t] += vals[row]
			if varis != nil {
				sumVars[t] += varis[row]
			}
		}
		return nil
	})
	return histTable(plan, sums, sumVars, buf.data.Unit(), b.coords, b.masks)
}

// histSource extracts the data column as float64 values plus variances.
func histSource(data *Variable) ([]float64, []float64, error) {
	if !data.DType().IsNumeric() {
		return nil, nil, errors.Newf(errors.ErrVariable, "cannot histogram %s data", data.DType())
	}
	vals, err := coordAsFloat64s(data)
	if err != nil {
		return nil, nil, err
	}
	var varis []float64
	switch data.DType() {
	case DTypeFloat64:
		varis = data.Float64Variances()
	case DTypeFloat32:
		if src := data.Float32Variances(); src != nil {
			varis = make([]float64, len(src))
			for i, x := range src {
				varis[i] = float64(x)
			}
		}
	}
	return vals, varis, nil
}

func accumulateHist(sums, sumVars []float64, indices []int64, vals, varis []float64, span IndexPair) {
	for row := span.Begin; row < span.End; row++ {
		t := indices[row]
		if t < 0 {
			continue
		}
		sums[t] += vals[row]
		if varis != nil {
			sumVars[t] += varis[row]
		}
	}
}

// histTable assembles the dense result: the plan's edge coordinates plus
// every input bin-level column whose dims the plan leaves alone.
func histTable(p *binPlan, sums, sumVars []float64, unit Unit, inCoords, inMasks *Dict) (*Table, error) {
	out, err := NewVariable(DTypeFloat64, p.out, unit, sumVars != nil)
	if err != nil {
		return nil, err
	}
	copy(out.Float64s(), sums)
	if sumVars != nil {
		copy(out.Float64Variances(), sumVars)
	}
	affected := p.affected()
	coords := p.outCoords.Copy()
	masks := NewDict()
	_ = inCoords.Each(func(k string, v *Variable) error {
		if coords.Contains(k) || dimsIntersect(v.sizes, affected) {
			return nil
		}
		coords.Set(k, v.share())
		return nil
	})
	_ = inMasks.Each(func(k string, v *Variable) error {
		if dimsIntersect(v.sizes, affected) {
			return nil
		}
		masks.Set(k, v.DeepCopy())
		return nil
	})
	return NewTable(out, coords, masks)
}
