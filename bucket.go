// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"github.com/raggeddata/ragged/errors"
)

// Buckets is a ragged array: a Variable of [begin,end) index pairs over one
// or more bin dimensions, each pair addressing a row range of a shared
// buffer table along one inner dimension.
//
// The index ranges are immutable once built. Non-overlap of ranges across
// cells is a soft invariant: the general API tolerates overlap (cells may
// legitimately share rows after zero-copy slicing), but engine-internal fast
// paths assume it and callers violating it on hand-built buckets get
// corrupted results, not errors.
type Buckets struct {
	ranges *Variable // DTypeIndexPair over the bin dims
	dim    Dim       // inner (row) dimension of buffer
	buffer *Table
	coords *Dict // per-bin coords: edges, group values, lifted input coords
	masks  *Dict // per-bin masks
}

// NewBuckets validates every range against the buffer and assembles a bucket
// variable.
func NewBuckets(ranges *Variable, dim Dim, buffer *Table) (*Buckets, error) {
	if ranges == nil || ranges.DType() != DTypeIndexPair {
		return nil, errors.New(errors.ErrVariable, "bucket ranges must have dtype index_pair")
	}
	if buffer == nil {
		return nil, errors.New(errors.ErrVariable, "bucket buffer must not be nil")
	}
	if !buffer.Sizes().Contains(dim) {
		return nil, errors.Newf(errors.ErrDimension, "buffer has no dimension %s", dim)
	}
	rows := int64(buffer.Sizes().at(dim))
	for i, p := range ranges.IndexPairs() {
		if p.Begin < 0 || p.Begin > p.End || p.End > rows {
			return nil, errors.Newf(errors.ErrVariable,
				"bucket %d: range [%d,%d) invalid for buffer of %d rows along %s",
				i, p.Begin, p.End, rows, dim)
		}
	}
	return newBucketsUnchecked(ranges, dim, buffer), nil
}

// newBucketsUnchecked skips range validation; engine-built results are
// correct by construction.
func newBucketsUnchecked(ranges *Variable, dim Dim, buffer *Table) *Buckets {
	return &Buckets{
		ranges: ranges,
		dim:    dim,
		buffer: buffer,
		coords: NewDict(),
		masks:  NewDict(),
	}
}

func (b *Buckets) Ranges() *Variable { return b.ranges }
func (b *Buckets) Dim() Dim          { return b.dim }
func (b *Buckets) Buffer() *Table    { return b.buffer }
func (b *Buckets) Coords() *Dict     { return b.coords }
func (b *Buckets) Masks() *Dict      { return b.masks }

// Sizes returns the shape of the bin dimensions.
func (b *Buckets) Sizes() Sizes { return b.ranges.Sizes() }

// NumBins returns the number of bucket cells.
func (b *Buckets) NumBins() int { return b.ranges.Volume() }

// EventCount returns the total number of rows referenced across all cells.
func (b *Buckets) EventCount() int64 {
	var n int64
	for _, p := range b.ranges.IndexPairs() {
		n += p.Len()
	}
	return n
}

// BinSizes returns an int64 Variable over the bin dims holding each cell's
// row count.
func (b *Buckets) BinSizes() *Variable {
	pairs := b.ranges.IndexPairs()
	out := make([]int64, len(pairs))
	for i, p := range pairs {
		out[i] = p.Len()
	}
	v, err := NewVariable(DTypeInt64, b.ranges.sizes, UnitNone, false)
	if err != nil {
		panic(err)
	}
	copy(v.Int64s(), out)
	return v
}

// Cell returns bin i's rows as a sub-table viewing the shared buffer. Only
// row-dependent columns are sliced; others are shared.
func (b *Buckets) Cell(i int) (*Table, error) {
	if i < 0 || i >= b.NumBins() {
		return nil, errors.Newf(errors.ErrInvalidArgument, "bucket index %d out of range [0,%d)", i, b.NumBins())
	}
	p := b.ranges.IndexPairs()[i]
	sliceCol := func(v *Variable) (*Variable, error) {
		if !v.sizes.Contains(b.dim) {
			return v.share(), nil
		}
		return v.Slice(b.dim, int(p.Begin), int(p.End))
	}
	data, err := sliceCol(b.buffer.data)
	if err != nil {
		return nil, err
	}
	coords, masks, attrs := NewDict(), NewDict(), NewDict()
	copyDict := func(src, dst *Dict) error {
		return src.Each(func(k string, v *Variable) error {
			sv, err := sliceCol(v)
			if err != nil {
				return err
			}
			dst.Set(k, sv)
			return nil
		})
	}
	if err := copyDict(b.buffer.coords, coords); err != nil {
		return nil, err
	}
	if err := copyDict(b.buffer.masks, masks); err != nil {
		return nil, err
	}
	if err := copyDict(b.buffer.attrs, attrs); err != nil {
		return nil, err
	}
	return NewTableWithAttrs(data, coords, masks, attrs)
}

// Equal reports full structural equality: shape, per-cell row content in
// order, bin-level metadata and buffer metadata. Cells are compared by
// content, not by their index ranges, so two results that lay out the same
// rows differently in their buffers still compare equal.
func (b *Buckets) Equal(o *Buckets) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.dim != o.dim || !b.ranges.sizes.Equal(o.ranges.sizes) {
		return false
	}
	if !b.coords.Equal(o.coords) || !b.masks.Equal(o.masks) {
		return false
	}
	for i := 0; i < b.NumBins(); i++ {
		bc, err := b.Cell(i)
		if err != nil {
			return false
		}
		oc, err := o.Cell(i)
		if err != nil {
			return false
		}
		if !bc.Equal(oc) {
			return false
		}
	}
	return true
}

// Validate re-checks the range invariant; engine results always pass.
func (b *Buckets) Validate() error {
	_, err := NewBuckets(b.ranges, b.dim, b.buffer)
	return err
}
