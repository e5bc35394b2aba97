// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import "github.com/raggeddata/ragged/errors"

// DType identifies the element type of a Variable. The set is closed; all
// per-element dispatch in the engine is a single type switch resolved at the
// top of each operation, never a virtual call per element.
type DType int

const (
	DTypeFloat64 DType = iota
	DTypeFloat32
	DTypeInt64
	DTypeInt32
	DTypeBool
	DTypeString
	// DTypeIndexPair is the element type of bucket variables: a [begin,end)
	// row range into a shared buffer.
	DTypeIndexPair
)

func (dt DType) String() string {
	switch dt {
	case DTypeFloat64:
		return "float64"
	case DTypeFloat32:
		return "float32"
	case DTypeInt64:
		return "int64"
	case DTypeInt32:
		return "int32"
	case DTypeBool:
		return "bool"
	case DTypeString:
		return "string"
	case DTypeIndexPair:
		return "index_pair"
	}
	return "unknown"
}

// IsNumeric reports whether dt participates in numeric promotion.
func (dt DType) IsNumeric() bool {
	switch dt {
	case DTypeFloat64, DTypeFloat32, DTypeInt64, DTypeInt32:
		return true
	}
	return false
}

// promoteDType returns the common dtype two numeric dtypes implicitly promote
// to: int32 -> int64 -> float64, float32 + anything wider -> float64.
func promoteDType(a, b DType) (DType, error) {
	if a == b {
		return a, nil
	}
	if !a.IsNumeric() || !b.IsNumeric() {
		return 0, errors.Newf(errors.ErrBinEdge, "cannot promote %s and %s to a common dtype", a, b)
	}
	isFloat := func(dt DType) bool { return dt == DTypeFloat64 || dt == DTypeFloat32 }
	if isFloat(a) || isFloat(b) {
		return DTypeFloat64, nil
	}
	return DTypeInt64, nil
}

// Unit is an opaque physical-unit label. Full dimensional analysis lives
// outside this package; the engine only compares units for equality (bin
// edges must carry the same unit as the coordinate they bin).
type Unit string

const (
	UnitNone   Unit = ""
	UnitCounts Unit = "counts"
)

func (u Unit) String() string {
	if u == UnitNone {
		return "dimensionless"
	}
	return string(u)
}

// IndexPair is a [Begin,End) row range into a bucket buffer.
type IndexPair struct {
	Begin int64
	End   int64
}

// Len returns End-Begin.
func (p IndexPair) Len() int64 { return p.End - p.Begin }
