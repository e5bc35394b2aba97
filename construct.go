// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"github.com/raggeddata/ragged/errors"
)

// The bin-construction engine: given per-row (or per-input-bin) targets,
// size the output bins, allocate the output buffer and scatter-copy every
// contribution. All validation happens before the first allocation; the
// scatter pass itself cannot fail short of memory exhaustion, in which case
// the partially built result is simply discarded.

// buildOutputBuffer allocates the output table: row-dependent columns sized
// to total rows (same dtype, unit and variance presence), row-independent
// columns deep-copied once. dropCols names coord/mask columns that must not
// survive (grouped-away coords, applied masks, edge columns that depend on
// the re-partitioned row dimension).
func (r *Registry) buildOutputBuffer(buf *Table, rowDim Dim, total int64, dropCols map[string]bool) (*Table, []columnPair, error) {
	rows := buf.Rows()
	var pairs []columnPair
	outCoords, outMasks, outAttrs := NewDict(), NewDict(), NewDict()
	var outData *Variable
	err := buf.eachColumn(func(kind columnKind, key string, v *Variable) error {
		if kind != columnData && dropCols[key] {
			return nil
		}
		if !v.sizes.Contains(rowDim) {
			if kind == columnData {
				return errors.Newf(errors.ErrBinnedData, "data column does not depend on row dimension %s", rowDim)
			}
			cp := v.DeepCopy()
			setColumn(outCoords, outMasks, outAttrs, kind, key, cp)
			return nil
		}
		if v.Volume() == rows+1 {
			// Bin-edge column along the row dimension: meaningless after
			// re-partitioning, silently dropped.
			return nil
		}
		out, err := r.makeColumn(v, rowDim, int(total))
		if err != nil {
			return errors.Wrapf(err, "column %s", key)
		}
		if kind == columnData {
			outData = out
		} else {
			setColumn(outCoords, outMasks, outAttrs, kind, key, out)
		}
		pairs = append(pairs, columnPair{src: v, dst: out})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	outBuf, err := NewTableWithAttrs(outData, outCoords, outMasks, outAttrs)
	if err != nil {
		return nil, nil, err
	}
	return outBuf, pairs, nil
}

func setColumn(coords, masks, attrs *Dict, kind columnKind, key string, v *Variable) {
	switch kind {
	case columnCoord:
		coords.Set(key, v)
	case columnMask:
		masks.Set(key, v)
	case columnAttr:
		attrs.Set(key, v)
	}
}

// columnPair is one scatter assignment: src rows flow into dst.
type columnPair struct {
	src, dst *Variable
}

// constructFromEvents materializes the output bucket variable from per-row
// targets. chunkSpans partitions the input rows (fabricated contiguous
// chunks for dense input; runs of input bins for bucketed input); indices
// holds one target per buffer row, -1 dropping the row.
func (r *Registry) constructFromEvents(buf *Table, rowDim Dim, chunkSpans [][]IndexPair,
	indices []int64, out Sizes, dropCols map[string]bool, workers int) (*Buckets, error) {

	totalBins := out.Volume()
	sbs := newSubBinSizes(chunkSpans, indices, totalBins, workers)

	outBuf, pairs, err := r.buildOutputBuffer(buf, rowDim, sbs.total, dropCols)
	if err != nil {
		return nil, err
	}

	// Scatter pass. Chunks write disjoint output regions; within one output
	// bin, rows keep their first-seen input order.
	err = parallelFor(workers, len(chunkSpans), func(c int) error {
		lo, hi := sbs.lo[c], sbs.hi[c]
		if hi == lo {
			return nil
		}
		cursors := append([]int64(nil), sbs.csr[sbs.csrOff[c]:sbs.csrOff[c+1]]...)
		var srcRows, dstRows []int64
		for _, span := range chunkSpans[c] {
			for row := span.Begin; row < span.End; row++ {
				t := indices[row]
				if t < 0 {
					continue
				}
				srcRows = append(srcRows, row)
				dstRows = append(dstRows, cursors[t-lo])
				cursors[t-lo]++
			}
		}
		for _, p := range pairs {
			scatterColumn(p.dst, p.src, srcRows, dstRows)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ranges, err := rangesVariable(out, sbs.outOffsets, sbs.outSizes)
	if err != nil {
		return nil, err
	}
	return newBucketsUnchecked(ranges, rowDim, outBuf), nil
}

// constructFromBins materializes the output for plans that never touch
// per-event coordinates: every input bin flows whole into one output bin.
// spans[c] is input bin c's row range and binTargets[c] its output bin (-1
// drops the bin's rows). Subspan copies are contiguous on both sides.
func (r *Registry) constructFromBins(buf *Table, rowDim Dim, spans []IndexPair,
	binTargets []int64, out Sizes, dropCols map[string]bool, workers int) (*Buckets, error) {

	totalBins := out.Volume()
	outSizes := make([]int64, totalBins)
	for c, span := range spans {
		if t := binTargets[c]; t >= 0 {
			outSizes[t] += span.Len()
		}
	}
	outOffsets, total := exclusiveCumsum(outSizes)

	outBuf, pairs, err := r.buildOutputBuffer(buf, rowDim, total, dropCols)
	if err != nil {
		return nil, err
	}

	// Stable by input bin order within each output bin.
	dstStart := make([]int64, len(spans))
	cursors := append([]int64(nil), outOffsets...)
	for c, span := range spans {
		t := binTargets[c]
		if t < 0 {
			dstStart[c] = -1
			continue
		}
		dstStart[c] = cursors[t]
		cursors[t] += span.Len()
	}

	err = parallelFor(workers, len(spans), func(c int) error {
		if dstStart[c] < 0 || spans[c].Len() == 0 {
			return nil
		}
		for _, p := range pairs {
			copyColumnRange(p.dst, p.src, dstStart[c], spans[c].Begin, spans[c].Len())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ranges, err := rangesVariable(out, outOffsets, outSizes)
	if err != nil {
		return nil, err
	}
	return newBucketsUnchecked(ranges, rowDim, outBuf), nil
}

// rangesVariable zips offsets and sizes into the output IndexPair variable.
func rangesVariable(out Sizes, offsets, sizes []int64) (*Variable, error) {
	pairs := make([]IndexPair, len(sizes))
	for i := range sizes {
		pairs[i] = IndexPair{Begin: offsets[i], End: offsets[i] + sizes[i]}
	}
	return FromIndexPairs(out, pairs)
}

// scatterColumn copies src rows srcRows[k] to dst rows dstRows[k]. The type
// switch resolves once per column, then plain loops move the elements and,
// for float columns, the variances.
func scatterColumn(dst, src *Variable, srcRows, dstRows []int64) {
	switch dst.DType() {
	case DTypeFloat64:
		scatterVals(dst.Float64s(), src.Float64s(), srcRows, dstRows)
		if sv := src.Float64Variances(); sv != nil {
			scatterVals(dst.Float64Variances(), sv, srcRows, dstRows)
		}
	case DTypeFloat32:
		scatterVals(dst.Float32s(), src.Float32s(), srcRows, dstRows)
		if sv := src.Float32Variances(); sv != nil {
			scatterVals(dst.Float32Variances(), sv, srcRows, dstRows)
		}
	case DTypeInt64:
		scatterVals(dst.Int64s(), src.Int64s(), srcRows, dstRows)
	case DTypeInt32:
		scatterVals(dst.Int32s(), src.Int32s(), srcRows, dstRows)
	case DTypeBool:
		scatterVals(dst.Bools(), src.Bools(), srcRows, dstRows)
	case DTypeString:
		scatterVals(dst.Strings(), src.Strings(), srcRows, dstRows)
	case DTypeIndexPair:
		scatterVals(dst.IndexPairs(), src.IndexPairs(), srcRows, dstRows)
	}
}

func scatterVals[T any](dst, src []T, srcRows, dstRows []int64) {
	for k := range srcRows {
		dst[dstRows[k]] = src[srcRows[k]]
	}
}

// copyColumnRange copies n contiguous rows from src[srcBegin:] to
// dst[dstBegin:].
func copyColumnRange(dst, src *Variable, dstBegin, srcBegin, n int64) {
	switch dst.DType() {
	case DTypeFloat64:
		copy(dst.Float64s()[dstBegin:dstBegin+n], src.Float64s()[srcBegin:srcBegin+n])
		if sv := src.Float64Variances(); sv != nil {
			copy(dst.Float64Variances()[dstBegin:dstBegin+n], sv[srcBegin:srcBegin+n])
		}
	case DTypeFloat32:
		copy(dst.Float32s()[dstBegin:dstBegin+n], src.Float32s()[srcBegin:srcBegin+n])
		if sv := src.Float32Variances(); sv != nil {
			copy(dst.Float32Variances()[dstBegin:dstBegin+n], sv[srcBegin:srcBegin+n])
		}
	case DTypeInt64:
		copy(dst.Int64s()[dstBegin:dstBegin+n], src.Int64s()[srcBegin:srcBegin+n])
	case DTypeInt32:
		copy(dst.Int32s()[dstBegin:dstBegin+n], src.Int32s()[srcBegin:srcBegin+n])
	case DTypeBool:
		copy(dst.Bools()[dstBegin:dstBegin+n], src.Bools()[srcBegin:srcBegin+n])
	case DTypeString:
		copy(dst.Strings()[dstBegin:dstBegin+n], src.Strings()[srcBegin:srcBegin+n])
	case DTypeIndexPair:
		copy(dst.IndexPairs()[dstBegin:dstBegin+n], src.IndexPairs()[srcBegin:srcBegin+n])
	}
}
