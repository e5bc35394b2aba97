// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"fmt"
	"strings"

	"github.com/raggeddata/ragged/errors"
)

// Dim is an opaque label identifying an axis of an array. Dims are totally
// ordered by their string value, but the order of dims within a Sizes is
// insertion order, not sorted order.
type Dim string

func (d Dim) String() string { return string(d) }

// Sizes is an ordered mapping from dimension label to extent. The zero value
// is an empty, usable Sizes.
type Sizes struct {
	dims  []Dim
	sizes []int
}

// NewSizes builds a Sizes from parallel dim and extent slices.
func NewSizes(dims []Dim, shape []int) (Sizes, error) {
	if len(dims) != len(shape) {
		return Sizes{}, errors.Newf(errors.ErrSizes, "got %d dims but %d extents", len(dims), len(shape))
	}
	var s Sizes
	for i, d := range dims {
		if s.Contains(d) {
			return Sizes{}, errors.Newf(errors.ErrSizes, "duplicate dimension %s", d)
		}
		if shape[i] < 0 {
			return Sizes{}, errors.Newf(errors.ErrSizes, "dimension %s: negative extent %d", d, shape[i])
		}
		s.dims = append(s.dims, d)
		s.sizes = append(s.sizes, shape[i])
	}
	return s, nil
}

// SizesOf is a convenience constructor for literal use; it panics on
// invalid input where NewSizes would error.
func SizesOf(dims []Dim, shape []int) Sizes {
	s, err := NewSizes(dims, shape)
	if err != nil {
		panic(err)
	}
	return s
}

// sizes1D builds a rank-1 Sizes.
func sizes1D(dim Dim, n int) Sizes {
	return Sizes{dims: []Dim{dim}, sizes: []int{n}}
}

// Contains reports whether dim is present.
func (s Sizes) Contains(dim Dim) bool {
	return s.Index(dim) >= 0
}

// Index returns the position of dim, or -1.
func (s Sizes) Index(dim Dim) int {
	for i, d := range s.dims {
		if d == dim {
			return i
		}
	}
	return -1
}

// At returns the extent of dim.
func (s Sizes) At(dim Dim) (int, bool) {
	i := s.Index(dim)
	if i < 0 {
		return 0, false
	}
	return s.sizes[i], true
}

// at is At for call sites that have already validated dim's presence.
func (s Sizes) at(dim Dim) int {
	n, ok := s.At(dim)
	if !ok {
		panic(fmt.Sprintf("ragged: dimension %s not in sizes %s", dim, s))
	}
	return n
}

// Rank returns the number of dimensions.
func (s Sizes) Rank() int { return len(s.dims) }

// Volume returns the product of all extents (1 for rank 0).
func (s Sizes) Volume() int {
	v := 1
	for _, n := range s.sizes {
		v *= n
	}
	return v
}

// Dims returns a copy of the ordered dimension labels.
func (s Sizes) Dims() []Dim {
	out := make([]Dim, len(s.dims))
	copy(out, s.dims)
	return out
}

// Shape returns a copy of the ordered extents.
func (s Sizes) Shape() []int {
	out := make([]int, len(s.sizes))
	copy(out, s.sizes)
	return out
}

// Set updates the extent of dim, appending dim if absent.
func (s *Sizes) Set(dim Dim, size int) {
	if i := s.Index(dim); i >= 0 {
		s.sizes[i] = size
		return
	}
	s.dims = append(s.dims, dim)
	s.sizes = append(s.sizes, size)
}

// Resize is Set restricted to existing dims.
func (s *Sizes) Resize(dim Dim, size int) error {
	i := s.Index(dim)
	if i < 0 {
		return errors.Newf(errors.ErrSizes, "cannot resize missing dimension %s", dim)
	}
	s.sizes[i] = size
	return nil
}

// Erase removes dim if present.
func (s *Sizes) Erase(dim Dim) {
	i := s.Index(dim)
	if i < 0 {
		return
	}
	s.dims = append(s.dims[:i], s.dims[i+1:]...)
	s.sizes = append(s.sizes[:i], s.sizes[i+1:]...)
}

// Insert places dim with the given extent at position pos.
func (s *Sizes) Insert(pos int, dim Dim, size int) error {
	if s.Contains(dim) {
		return errors.Newf(errors.ErrSizes, "duplicate dimension %s", dim)
	}
	if pos < 0 || pos > len(s.dims) {
		return errors.Newf(errors.ErrSizes, "insert position %d out of range", pos)
	}
	s.dims = append(s.dims, "")
	copy(s.dims[pos+1:], s.dims[pos:])
	s.dims[pos] = dim
	s.sizes = append(s.sizes, 0)
	copy(s.sizes[pos+1:], s.sizes[pos:])
	s.sizes[pos] = size
	return nil
}

// Copy returns an independent copy.
func (s Sizes) Copy() Sizes {
	return Sizes{dims: s.Dims(), sizes: s.Shape()}
}

// Equal reports whether o has the same dims in the same order with the same
// extents.
func (s Sizes) Equal(o Sizes) bool {
	if len(s.dims) != len(o.dims) {
		return false
	}
	for i := range s.dims {
		if s.dims[i] != o.dims[i] || s.sizes[i] != o.sizes[i] {
			return false
		}
	}
	return true
}

func (s Sizes) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, d := range s.dims {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %d", d, s.sizes[i])
	}
	b.WriteByte('}')
	return b.String()
}

// strides returns row-major element strides matching the dim order.
func (s Sizes) strides() []int {
	out := make([]int, len(s.sizes))
	stride := 1
	for i := len(s.sizes) - 1; i >= 0; i-- {
		out[i] = stride
		stride *= s.sizes[i]
	}
	return out
}

// unravel decomposes a row-major linear index into per-dim indices.
func (s Sizes) unravel(linear int, out []int) {
	for i := len(s.sizes) - 1; i >= 0; i-- {
		if s.sizes[i] == 0 {
			out[i] = 0
			continue
		}
		out[i] = linear % s.sizes[i]
		linear /= s.sizes[i]
	}
}
