// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"github.com/raggeddata/ragged/errors"
)

// Table is a named set of columns sharing shape: one data column plus
// coordinate, mask and attribute columns. For event data (the input to Bin)
// the data column is 1-D and every row-dependent column shares its row
// dimension's extent; coordinate columns may instead be bin edges, one
// element longer.
type Table struct {
	data   *Variable
	coords *Dict
	masks  *Dict
	attrs  *Dict
}

// NewTable validates and assembles a table. coords, masks and attrs may be
// nil.
func NewTable(data *Variable, coords, masks *Dict) (*Table, error) {
	return NewTableWithAttrs(data, coords, masks, nil)
}

// NewTableWithAttrs is NewTable plus attribute columns, which propagate like
// coordinates but never participate in binning.
func NewTableWithAttrs(data *Variable, coords, masks, attrs *Dict) (*Table, error) {
	if data == nil || !data.IsValid() {
		return nil, errors.New(errors.ErrVariable, "table requires a valid data column")
	}
	if coords == nil {
		coords = NewDict()
	}
	if masks == nil {
		masks = NewDict()
	}
	if attrs == nil {
		attrs = NewDict()
	}
	sizes := data.sizes
	check := func(key string, v *Variable) error {
		if v == nil || !v.IsValid() {
			return errors.Newf(errors.ErrVariable, "column %s is invalid", key)
		}
		for i, d := range v.sizes.dims {
			n, ok := sizes.At(d)
			if !ok {
				// Column dim unrelated to the data; any extent goes.
				continue
			}
			if v.sizes.sizes[i] == n {
				continue
			}
			if v.sizes.sizes[i] == n+1 && v.sizes.Rank() == 1 {
				// Bin-edge column.
				continue
			}
			return errors.Newf(errors.ErrDimension,
				"column %s: dimension %s has extent %d, expected %d (or %d for edges)",
				key, d, v.sizes.sizes[i], n, n+1)
		}
		return nil
	}
	if err := coords.Each(check); err != nil {
		return nil, err
	}
	if err := attrs.Each(check); err != nil {
		return nil, err
	}
	err := masks.Each(func(key string, v *Variable) error {
		if err := check(key, v); err != nil {
			return err
		}
		if v.DType() != DTypeBool {
			return errors.Newf(errors.ErrVariable, "mask %s must be bool, got %s", key, v.DType())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Table{data: data, coords: coords, masks: masks, attrs: attrs}, nil
}

func (t *Table) Data() *Variable { return t.data }
func (t *Table) Coords() *Dict   { return t.coords }
func (t *Table) Masks() *Dict    { return t.masks }
func (t *Table) Attrs() *Dict    { return t.attrs }

// Sizes returns the shape of the data column.
func (t *Table) Sizes() Sizes { return t.data.Sizes() }

// RowDim returns the single dimension of 1-D data.
func (t *Table) RowDim() (Dim, error) {
	if t.data.sizes.Rank() != 1 {
		return "", errors.Newf(errors.ErrBinnedData,
			"only 1-D data supported for binning, got rank %d", t.data.sizes.Rank())
	}
	return t.data.sizes.dims[0], nil
}

// Rows returns the extent of the row dimension of 1-D data.
func (t *Table) Rows() int {
	return t.data.Volume()
}

// Equal reports structural equality of all columns.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.data.Equal(o.data) && t.coords.Equal(o.coords) &&
		t.masks.Equal(o.masks) && t.attrs.Equal(o.attrs)
}

// eachColumn visits the data column (key "") and then every coord, mask and
// attr column in dictionary order.
func (t *Table) eachColumn(fn func(kind columnKind, key string, v *Variable) error) error {
	if err := fn(columnData, "", t.data); err != nil {
		return err
	}
	if err := t.coords.Each(func(k string, v *Variable) error { return fn(columnCoord, k, v) }); err != nil {
		return err
	}
	if err := t.masks.Each(func(k string, v *Variable) error { return fn(columnMask, k, v) }); err != nil {
		return err
	}
	return t.attrs.Each(func(k string, v *Variable) error { return fn(columnAttr, k, v) })
}

// checkRowColumns rejects columns that depend on the row dimension with
// rank above one. The scatter pass addresses such columns by flat row index,
// which is only meaningful for 1-D event columns; anything else must fail
// before any output is allocated.
func checkRowColumns(t *Table, rowDim Dim) error {
	return t.eachColumn(func(kind columnKind, key string, v *Variable) error {
		if v.sizes.Contains(rowDim) && v.sizes.Rank() > 1 {
			name := key
			if kind == columnData {
				name = "data"
			}
			return errors.Newf(errors.ErrBinnedData,
				"column %s spans %s: columns over row dimension %s must be 1-D", name, v.sizes, rowDim)
		}
		return nil
	})
}

type columnKind int

const (
	columnData columnKind = iota
	columnCoord
	columnMask
	columnAttr
)
