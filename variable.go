// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"math"

	"github.com/raggeddata/ragged/errors"
)

// store is the reference-counted-in-spirit backing array of a Variable. Go's
// GC owns the memory; the shared flag only tracks aliasing so that mutating
// call sites can force a private copy first (copy-on-write).
type store struct {
	dtype DType

	f64 []float64
	f32 []float32
	i64 []int64
	i32 []int32
	b   []bool
	s   []string
	ip  []IndexPair

	// Variances parallel the values; only float dtypes may carry them.
	varF64 []float64
	varF32 []float32

	shared bool
}

func newStore(dtype DType, n int, withVariances bool) (*store, error) {
	st := &store{dtype: dtype}
	switch dtype {
	case DTypeFloat64:
		st.f64 = make([]float64, n)
		if withVariances {
			st.varF64 = make([]float64, n)
		}
	case DTypeFloat32:
		st.f32 = make([]float32, n)
		if withVariances {
			st.varF32 = make([]float32, n)
		}
	case DTypeInt64:
		st.i64 = make([]int64, n)
	case DTypeInt32:
		st.i32 = make([]int32, n)
	case DTypeBool:
		st.b = make([]bool, n)
	case DTypeString:
		st.s = make([]string, n)
	case DTypeIndexPair:
		st.ip = make([]IndexPair, n)
	default:
		return nil, errors.Newf(errors.ErrVariable, "unsupported dtype %s", dtype)
	}
	if withVariances && dtype != DTypeFloat64 && dtype != DTypeFloat32 {
		return nil, errors.Newf(errors.ErrVariable, "dtype %s cannot carry variances", dtype)
	}
	return st, nil
}

func (st *store) len() int {
	switch st.dtype {
	case DTypeFloat64:
		return len(st.f64)
	case DTypeFloat32:
		return len(st.f32)
	case DTypeInt64:
		return len(st.i64)
	case DTypeInt32:
		return len(st.i32)
	case DTypeBool:
		return len(st.b)
	case DTypeString:
		return len(st.s)
	case DTypeIndexPair:
		return len(st.ip)
	}
	return 0
}

func (st *store) hasVariances() bool {
	return st.varF64 != nil || st.varF32 != nil
}

func (st *store) clone() *store {
	out := &store{dtype: st.dtype}
	out.f64 = append([]float64(nil), st.f64...)
	out.f32 = append([]float32(nil), st.f32...)
	out.i64 = append([]int64(nil), st.i64...)
	out.i32 = append([]int32(nil), st.i32...)
	out.b = append([]bool(nil), st.b...)
	out.s = append([]string(nil), st.s...)
	out.ip = append([]IndexPair(nil), st.ip...)
	out.varF64 = append([]float64(nil), st.varF64...)
	out.varF32 = append([]float32(nil), st.varF32...)
	return out
}

// Variable is a dense, row-major column: a dtype, a unit, an ordered shape,
// element values and optional variances. Multiple Variables may view one
// store (slices, shared coords); see Own.
type Variable struct {
	sizes Sizes
	dtype DType
	unit  Unit
	st    *store
	off   int
}

// NewVariable allocates a default-initialized Variable.
func NewVariable(dtype DType, sizes Sizes, unit Unit, withVariances bool) (*Variable, error) {
	st, err := newStore(dtype, sizes.Volume(), withVariances)
	if err != nil {
		return nil, err
	}
	return &Variable{sizes: sizes.Copy(), dtype: dtype, unit: unit, st: st}, nil
}

// FromFloat64s builds a 1-D float64 Variable over dim. The slice is adopted,
// not copied.
func FromFloat64s(dim Dim, values []float64, unit Unit) *Variable {
	return &Variable{
		sizes: sizes1D(dim, len(values)),
		dtype: DTypeFloat64,
		unit:  unit,
		st:    &store{dtype: DTypeFloat64, f64: values},
	}
}

// FromFloat64sWithVariances is FromFloat64s plus per-element variances.
func FromFloat64sWithVariances(dim Dim, values, variances []float64, unit Unit) (*Variable, error) {
	if len(values) != len(variances) {
		return nil, errors.Newf(errors.ErrVariable, "dimension %s: %d values but %d variances", dim, len(values), len(variances))
	}
	return &Variable{
		sizes: sizes1D(dim, len(values)),
		dtype: DTypeFloat64,
		unit:  unit,
		st:    &store{dtype: DTypeFloat64, f64: values, varF64: variances},
	}, nil
}

// FromFloat32s builds a 1-D float32 Variable over dim.
func FromFloat32s(dim Dim, values []float32, unit Unit) *Variable {
	return &Variable{
		sizes: sizes1D(dim, len(values)),
		dtype: DTypeFloat32,
		unit:  unit,
		st:    &store{dtype: DTypeFloat32, f32: values},
	}
}

// FromInt64s builds a 1-D int64 Variable over dim.
func FromInt64s(dim Dim, values []int64, unit Unit) *Variable {
	return &Variable{
		sizes: sizes1D(dim, len(values)),
		dtype: DTypeInt64,
		unit:  unit,
		st:    &store{dtype: DTypeInt64, i64: values},
	}
}

// FromInt32s builds a 1-D int32 Variable over dim.
func FromInt32s(dim Dim, values []int32, unit Unit) *Variable {
	return &Variable{
		sizes: sizes1D(dim, len(values)),
		dtype: DTypeInt32,
		unit:  unit,
		st:    &store{dtype: DTypeInt32, i32: values},
	}
}

// FromStrings builds a 1-D string Variable over dim.
func FromStrings(dim Dim, values []string) *Variable {
	return &Variable{
		sizes: sizes1D(dim, len(values)),
		dtype: DTypeString,
		st:    &store{dtype: DTypeString, s: values},
	}
}

// FromBools builds a 1-D bool Variable over dim.
func FromBools(dim Dim, values []bool) *Variable {
	return &Variable{
		sizes: sizes1D(dim, len(values)),
		dtype: DTypeBool,
		st:    &store{dtype: DTypeBool, b: values},
	}
}

// FromIndexPairs builds an IndexPair Variable with the given shape.
func FromIndexPairs(sizes Sizes, pairs []IndexPair) (*Variable, error) {
	if len(pairs) != sizes.Volume() {
		return nil, errors.Newf(errors.ErrVariable, "sizes %s need %d index pairs, got %d", sizes, sizes.Volume(), len(pairs))
	}
	return &Variable{
		sizes: sizes.Copy(),
		dtype: DTypeIndexPair,
		st:    &store{dtype: DTypeIndexPair, ip: pairs},
	}, nil
}

func (v *Variable) DType() DType { return v.dtype }
func (v *Variable) Unit() Unit   { return v.unit }
func (v *Variable) Sizes() Sizes { return v.sizes.Copy() }
func (v *Variable) Volume() int  { return v.sizes.Volume() }

// HasVariances reports whether v carries per-element variances.
func (v *Variable) HasVariances() bool { return v.st.hasVariances() }

// IsEdges reports whether v is a 1-D coordinate over dim with one element
// more than sizes' extent of dim, i.e. a bin-edge coordinate.
func (v *Variable) IsEdges(sizes Sizes, dim Dim) bool {
	if v.sizes.Rank() != 1 || v.sizes.dims[0] != dim {
		return false
	}
	n, ok := sizes.At(dim)
	if !ok {
		return false
	}
	return v.sizes.sizes[0] == n+1
}

func view[T any](data []T, off, n int) []T {
	if data == nil {
		return nil
	}
	return data[off : off+n]
}

// Float64s returns the value storage of a float64 Variable. The slice aliases
// the store; callers that intend to write must hold the only reference (see
// Own).
func (v *Variable) Float64s() []float64 { return view(v.st.f64, v.off, v.Volume()) }

// Float64Variances returns the variance storage, or nil.
func (v *Variable) Float64Variances() []float64 { return view(v.st.varF64, v.off, v.Volume()) }

func (v *Variable) Float32s() []float32          { return view(v.st.f32, v.off, v.Volume()) }
func (v *Variable) Float32Variances() []float32  { return view(v.st.varF32, v.off, v.Volume()) }
func (v *Variable) Int64s() []int64              { return view(v.st.i64, v.off, v.Volume()) }
func (v *Variable) Int32s() []int32              { return view(v.st.i32, v.off, v.Volume()) }
func (v *Variable) Bools() []bool                { return view(v.st.b, v.off, v.Volume()) }
func (v *Variable) Strings() []string            { return view(v.st.s, v.off, v.Volume()) }
func (v *Variable) IndexPairs() []IndexPair      { return view(v.st.ip, v.off, v.Volume()) }

// share returns a new Variable viewing the same store, marking the store
// shared so later mutation forces a copy.
func (v *Variable) share() *Variable {
	v.st.shared = true
	out := *v
	out.sizes = v.sizes.Copy()
	return &out
}

// Own forces v to hold a private copy of its store if it is shared, and
// returns v. Call before writing through any of the slice accessors.
func (v *Variable) Own() *Variable {
	if v.st.shared {
		v.st = v.st.clone()
		v.st.shared = false
	}
	return v
}

// IsValid reports whether v has usable storage for its shape.
func (v *Variable) IsValid() bool {
	return v != nil && v.st != nil && v.off+v.Volume() <= v.st.len()
}

// Slice returns a view of the [begin,end) range of v along dim. Slicing the
// outermost dimension shares storage; slicing an inner dimension materializes
// a copy, since the result is not contiguous.
func (v *Variable) Slice(dim Dim, begin, end int) (*Variable, error) {
	i := v.sizes.Index(dim)
	if i < 0 {
		return nil, errors.Newf(errors.ErrDimension, "cannot slice missing dimension %s", dim)
	}
	extent := v.sizes.sizes[i]
	if begin < 0 || end < begin || end > extent {
		return nil, errors.Newf(errors.ErrDimension, "dimension %s: slice [%d,%d) out of range [0,%d)", dim, begin, end, extent)
	}
	if i == 0 {
		inner := v.Volume() / max(extent, 1)
		if extent == 0 {
			inner = 0
		}
		out := v.share()
		out.off = v.off + begin*inner
		out.sizes.sizes[0] = end - begin
		return out, nil
	}
	// Inner-dim slice: gather into fresh storage.
	sub := v.sizes.Copy()
	sub.sizes[i] = end - begin
	idx := make([]int, sub.Volume())
	pos := make([]int, sub.Rank())
	strides := v.sizes.strides()
	for k := range idx {
		sub.unravel(k, pos)
		src := 0
		for j, p := range pos {
			if j == i {
				p += begin
			}
			src += p * strides[j]
		}
		idx[k] = src
	}
	return v.gather(sub, idx)
}

// gather builds a new Variable with the given shape whose element k is
// v's element idx[k] (view-relative).
func (v *Variable) gather(sizes Sizes, idx []int) (*Variable, error) {
	out, err := NewVariable(v.dtype, sizes, v.unit, v.HasVariances())
	if err != nil {
		return nil, err
	}
	switch v.dtype {
	case DTypeFloat64:
		src, dst := v.Float64s(), out.Float64s()
		for k, s := range idx {
			dst[k] = src[s]
		}
		if sv, dv := v.Float64Variances(), out.Float64Variances(); sv != nil {
			for k, s := range idx {
				dv[k] = sv[s]
			}
		}
	case DTypeFloat32:
		src, dst := v.Float32s(), out.Float32s()
		for k, s := range idx {
			dst[k] = src[s]
		}
		if sv, dv := v.Float32Variances(), out.Float32Variances(); sv != nil {
			for k, s := range idx {
				dv[k] = sv[s]
			}
		}
	case DTypeInt64:
		src, dst := v.Int64s(), out.Int64s()
		for k, s := range idx {
			dst[k] = src[s]
		}
	case DTypeInt32:
		src, dst := v.Int32s(), out.Int32s()
		for k, s := range idx {
			dst[k] = src[s]
		}
	case DTypeBool:
		src, dst := v.Bools(), out.Bools()
		for k, s := range idx {
			dst[k] = src[s]
		}
	case DTypeString:
		src, dst := v.Strings(), out.Strings()
		for k, s := range idx {
			dst[k] = src[s]
		}
	case DTypeIndexPair:
		src, dst := v.IndexPairs(), out.IndexPairs()
		for k, s := range idx {
			dst[k] = src[s]
		}
	}
	return out, nil
}

// Broadcast returns v expanded to target. Every dim of v must appear in
// target with the same extent. The result owns fresh storage.
func (v *Variable) Broadcast(target Sizes) (*Variable, error) {
	if v.sizes.Equal(target) {
		return v.share(), nil
	}
	vstrides := v.sizes.strides()
	dimStride := make([]int, target.Rank())
	for i, d := range target.dims {
		j := v.sizes.Index(d)
		if j < 0 {
			dimStride[i] = 0
			continue
		}
		if v.sizes.sizes[j] != target.sizes[i] {
			return nil, errors.Newf(errors.ErrDimension, "dimension %s: cannot broadcast extent %d to %d", d, v.sizes.sizes[j], target.sizes[i])
		}
		dimStride[i] = vstrides[j]
	}
	for _, d := range v.sizes.dims {
		if !target.Contains(d) {
			return nil, errors.Newf(errors.ErrDimension, "dimension %s missing from broadcast target %s", d, target)
		}
	}
	idx := make([]int, target.Volume())
	pos := make([]int, target.Rank())
	for k := range idx {
		target.unravel(k, pos)
		src := 0
		for i, p := range pos {
			src += p * dimStride[i]
		}
		idx[k] = src
	}
	return v.gather(target, idx)
}

// DeepCopy returns a fully independent copy of v's view.
func (v *Variable) DeepCopy() *Variable {
	out, err := v.gather(v.sizes, identityIndex(v.Volume()))
	if err != nil {
		// gather with v's own dtype cannot fail.
		panic(err)
	}
	return out
}

func identityIndex(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

// Equal reports structural equality: dims, dtype, unit, values and
// variances. NaN values compare equal to each other.
func (v *Variable) Equal(o *Variable) bool {
	if v == nil || o == nil {
		return v == o
	}
	if !v.sizes.Equal(o.sizes) || v.dtype != o.dtype || v.unit != o.unit {
		return false
	}
	if v.HasVariances() != o.HasVariances() {
		return false
	}
	switch v.dtype {
	case DTypeFloat64:
		return equalFloat64s(v.Float64s(), o.Float64s()) &&
			equalFloat64s(v.Float64Variances(), o.Float64Variances())
	case DTypeFloat32:
		return equalFloat32s(v.Float32s(), o.Float32s()) &&
			equalFloat32s(v.Float32Variances(), o.Float32Variances())
	case DTypeInt64:
		return equalSlices(v.Int64s(), o.Int64s())
	case DTypeInt32:
		return equalSlices(v.Int32s(), o.Int32s())
	case DTypeBool:
		return equalSlices(v.Bools(), o.Bools())
	case DTypeString:
		return equalSlices(v.Strings(), o.Strings())
	case DTypeIndexPair:
		return equalSlices(v.IndexPairs(), o.IndexPairs())
	}
	return false
}

func equalFloat64s(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}

func equalFloat32s(a, b []float32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(float64(a[i])) && math.IsNaN(float64(b[i]))) {
			return false
		}
	}
	return true
}

func equalSlices[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
