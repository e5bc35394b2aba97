// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"github.com/raggeddata/ragged/errors"
)

// Concatenate appends b's rows to a's, bin by bin: output bin i holds a's
// bin-i rows followed by b's. The two bucket variables must be structurally
// compatible: same bin shape, same inner dimension, equal bin-level
// coordinates and masks, and buffers with matching columns. Uses the default
// registry.
func Concatenate(a, b *Buckets) (*Buckets, error) {
	return defaultRegistry.Concatenate(a, b)
}

// Concatenate is the bin-wise ragged append. Only rows referenced by some
// bin survive into the output buffer (the result is compacted).
func (r *Registry) Concatenate(a, b *Buckets) (*Buckets, error) {
	if a.dim != b.dim {
		return nil, errors.Newf(errors.ErrVariable,
			"cannot concatenate buckets over %s with buckets over %s", a.dim, b.dim)
	}
	if !a.ranges.sizes.Equal(b.ranges.sizes) {
		return nil, errors.Newf(errors.ErrVariable,
			"cannot concatenate: bin shapes %s and %s differ", a.ranges.sizes, b.ranges.sizes)
	}
	if !a.coords.Equal(b.coords) {
		return nil, errors.New(errors.ErrCoordMismatch,
			"cannot concatenate: mismatched bin coordinates")
	}
	if !a.masks.Equal(b.masks) {
		return nil, errors.New(errors.ErrCoordMismatch,
			"cannot concatenate: mismatched bin masks")
	}
	if err := checkRowColumns(a.buffer, a.dim); err != nil {
		return nil, err
	}
	if err := checkRowColumns(b.buffer, b.dim); err != nil {
		return nil, err
	}
	pairsB, err := matchBufferColumns(a.buffer, b.buffer)
	if err != nil {
		return nil, err
	}

	aPairs := a.ranges.IndexPairs()
	bPairs := b.ranges.IndexPairs()
	n := len(aPairs)
	outSizes := make([]int64, n)
	for i := range outSizes {
		outSizes[i] = aPairs[i].Len() + bPairs[i].Len()
	}
	outOffsets, total := exclusiveCumsum(outSizes)

	outBuf, aCols, err := r.buildOutputBuffer(a.buffer, a.dim, total, nil)
	if err != nil {
		return nil, err
	}
	workers := r.workersForRows(int(total))
	err = parallelFor(workers, n, func(i int) error {
		dst := outOffsets[i]
		for k, p := range aCols {
			copyColumnRange(p.dst, p.src, dst, aPairs[i].Begin, aPairs[i].Len())
			copyColumnRange(p.dst, pairsB[k], dst+aPairs[i].Len(), bPairs[i].Begin, bPairs[i].Len())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ranges, err := rangesVariable(a.ranges.sizes, outOffsets, outSizes)
	if err != nil {
		return nil, err
	}
	out := newBucketsUnchecked(ranges, a.dim, outBuf)
	_ = a.coords.Each(func(k string, v *Variable) error {
		out.coords.Set(k, v.share())
		return nil
	})
	_ = a.masks.Each(func(k string, v *Variable) error {
		out.masks.Set(k, v.DeepCopy())
		return nil
	})
	return out, nil
}

// matchBufferColumns checks that b's buffer carries the same row-dependent
// columns as a's, with matching dtype, unit and variance presence, and
// returns them in a's column order (data first). The column walk mirrors
// buildOutputBuffer so indices line up with its scatter pairs.
func matchBufferColumns(a, b *Table) ([]*Variable, error) {
	rowDim := a.data.sizes.dims[0]
	rows := a.Rows()
	var out []*Variable
	err := a.eachColumn(func(kind columnKind, key string, v *Variable) error {
		if !v.sizes.Contains(rowDim) || v.Volume() == rows+1 {
			return nil
		}
		var bv *Variable
		switch kind {
		case columnData:
			bv = b.data
		case columnCoord:
			bv, _ = b.coords.Get(key)
		case columnMask:
			bv, _ = b.masks.Get(key)
		case columnAttr:
			bv, _ = b.attrs.Get(key)
		}
		if bv == nil {
			return errors.Newf(errors.ErrVariable, "cannot concatenate: column %s missing from second operand", key)
		}
		if bv.DType() != v.DType() || bv.Unit() != v.Unit() || bv.HasVariances() != v.HasVariances() {
			return errors.Newf(errors.ErrVariable,
				"cannot concatenate: column %s has dtype %s unit %s, expected dtype %s unit %s",
				key, bv.DType(), bv.Unit(), v.DType(), v.Unit())
		}
		out = append(out, bv)
		return nil
	})
	if err != nil {
		return nil, err
	}
	// The walk above only proves b carries a's columns; b may still carry
	// row-dependent columns a lacks, which the scatter would silently drop.
	bRows := b.Rows()
	err = b.eachColumn(func(kind columnKind, key string, v *Variable) error {
		if kind == columnData || !v.sizes.Contains(rowDim) || v.Volume() == bRows+1 {
			return nil
		}
		var present bool
		switch kind {
		case columnCoord:
			present = a.coords.Contains(key)
		case columnMask:
			present = a.masks.Contains(key)
		case columnAttr:
			present = a.attrs.Contains(key)
		}
		if !present {
			return errors.Newf(errors.ErrVariable,
				"cannot concatenate: column %s missing from first operand", key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
