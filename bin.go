// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package ragged implements a labeled, multi-dimensional event-binning and
// rebinning engine: it partitions a table of row-oriented records into a
// multi-dimensional array of variable-length buckets according to per-axis
// grouping, binning and pass-through operations, and incrementally re-bins
// already-bucketed data without touching raw events when the plan allows.
package ragged

// Bin partitions a 1-D event table into buckets according to args,
// using the default registry.
func Bin(t *Table, args BinArgs) (*Buckets, error) {
	return defaultRegistry.Bin(t, args)
}

// Rebin re-partitions already-bucketed data according to args, using the
// default registry.
func Rebin(b *Buckets, args BinArgs) (*Buckets, error) {
	return defaultRegistry.Rebin(b, args)
}

// Bin partitions a 1-D event table into buckets: rows are assigned to output
// bins by the per-axis actions in args, the output buffer is sized and
// scattered in one pass, and the new edges/groups become the bin-level
// coordinates of the result.
//
// All validation happens before any output allocation; on error the input is
// untouched. Rows whose binning coordinate is NaN, infinite or out of range,
// and rows under a row-dimension mask, are dropped from every output bin.
// Within one output bin, surviving rows keep their input order.
func (r *Registry) Bin(t *Table, args BinArgs) (*Buckets, error) {
	rowDim, err := t.RowDim()
	if err != nil {
		return nil, err
	}
	if err := checkRowColumns(t, rowDim); err != nil {
		return nil, err
	}
	rows := t.Rows()
	plan, err := newBinPlan(t.coords, rowDim, rows, Sizes{}, nil, args)
	if err != nil {
		return nil, err
	}
	tb, err := newTargetBuilder(plan, t.coords, rowDim, rows, Sizes{})
	if err != nil {
		return nil, err
	}
	rowMask, appliedMasks, err := irreducibleRowMask(t.masks, rowDim, rows)
	if err != nil {
		return nil, err
	}

	workers := r.workersForRows(rows)
	chunks := fabricateChunks(rows, workers)
	r.log.Debugf("bin: %d rows -> %s bins on %d workers", rows, plan.out, len(chunks))

	indices := makeTargets(rows)
	// The fabricated chunks are the threading adapter's temporary buckets:
	// no bin-sourced axes exist for plain input, so the span index carries
	// no meaning and the boundaries never reach the result.
	tb.fillTargets(indices, chunks, rowMask, nil, workers)

	dropCols := map[string]bool{}
	for _, k := range plan.groupedEventCoords {
		dropCols[k] = true
	}
	for _, k := range appliedMasks {
		dropCols[k] = true
	}

	chunkSpans := make([][]IndexPair, len(chunks))
	for i, c := range chunks {
		chunkSpans[i] = []IndexPair{c}
	}
	out, err := r.constructFromEvents(t, rowDim, chunkSpans, indices, plan.out, dropCols, workers)
	if err != nil {
		return nil, err
	}
	liftBinMetadata(plan, nil, nil, out)
	return out, nil
}

// Rebin re-partitions bucketed data: coarsening, refining or re-binning
// along a different axis, erasing bin dimensions, or joining them. When no
// action needs per-event coordinates (erase/join only), whole input bins
// flow to output bins and no per-row index is materialized.
func (r *Registry) Rebin(b *Buckets, args BinArgs) (*Buckets, error) {
	buf := b.buffer
	rowDim := b.dim
	if err := checkRowColumns(buf, rowDim); err != nil {
		return nil, err
	}
	rows, _ := buf.Sizes().At(rowDim)
	binSizes := b.ranges.sizes

	plan, err := newBinPlan(buf.coords, rowDim, rows, binSizes, b.coords, args)
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

	spans := b.ranges.IndexPairs()
	workers := r.workersForRows(int(b.EventCount()))

	var out *Buckets
	if !plan.needsEvents() {
		// Whole-bin fast path: targets per input bin, contiguous subspan
		// copies, raw events never re-examined.
		r.log.Debugf("rebin: whole-bin path, %d bins -> %s", len(spans), plan.out)
		tb, err := newTargetBuilder(plan, buf.coords, rowDim, rows, binSizes)
		if err != nil {
			return nil, err
		}
		binTargets := tb.buildBinTargets(len(spans))
		if binMask != nil {
			for c, m := range binMask {
				if m {
					binTargets[c] = -1
				}
			}
		}
		out, err = r.constructFromBins(buf, rowDim, spans, binTargets, plan.out, nil, workers)
		if err != nil {
			return nil, err
		}
	} else {
		r.log.Debugf("rebin: event path, %d bins -> %s on %d workers", len(spans), plan.out, workers)
		tb, err := newTargetBuilder(plan, buf.coords, rowDim, rows, binSizes)
		if err != nil {
			return nil, err
		}
		rowMask, appliedMasks, err := irreducibleRowMask(buf.masks, rowDim, rows)
		if err != nil {
			return nil, err
		}
		// Rows outside every input bin stay -1 and are dropped.
		indices := makeTargets(rows)
		tb.fillTargets(indices, spans, rowMask, binMask, workers)

		dropCols := map[string]bool{}
		for _, k := range plan.groupedEventCoords {
			dropCols[k] = true
		}
		for _, k := range appliedMasks {
			dropCols[k] = true
		}
		chunkSpans := make([][]IndexPair, len(spans))
		for i, s := range spans {
			chunkSpans[i] = []IndexPair{s}
		}
		out, err = r.constructFromEvents(buf, rowDim, chunkSpans, indices, plan.out, dropCols, workers)
		if err != nil {
			return nil, err
		}
	}
	liftBinMetadata(plan, b.coords, b.masks, out)
	return out, nil
}

// makeTargets allocates a target slice with every row dropped until
// assigned.
func makeTargets(rows int) []int64 {
	out := make([]int64, rows)
	for i := range out {
		out[i] = -1
	}
	return out
}
