// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"github.com/raggeddata/ragged/errors"
	"github.com/raggeddata/ragged/logger"
)

// bucketMaker allocates a default-initialized output column of n rows for one
// dtype, preserving unit and variance presence of the input column.
type bucketMaker func(dim Dim, n int, unit Unit, withVariances bool) (*Variable, error)

// Registry carries the engine's process-wide configuration: the closed
// dtype -> bucket-maker table, the thread-count tiers, the histogram size
// safety threshold and the logger. It is built once and passed by reference;
// nothing in this package mutates a Registry after construction.
type Registry struct {
	log           logger.Logger
	makers        map[DType]bucketMaker
	threadTiers   []ThreadTier
	histThreshold int
}

// ThreadTier maps a minimum row count (exclusive) to a worker count.
type ThreadTier struct {
	Rows    int
	Workers int
}

// Default thread tiers; tuning constants, not semantics. Results are
// identical at any worker count.
var defaultThreadTiers = []ThreadTier{
	{Rows: 8_000_000, Workers: 24},
	{Rows: 4_000_000, Workers: 16},
	{Rows: 1_000_000, Workers: 8},
	{Rows: 200_000, Workers: 4},
	{Rows: 100_000, Workers: 2},
}

// defaultHistThreshold bounds the combined footprint of Histogram's
// per-worker accumulators, roughly a gigabyte of float64; above it the
// accumulation serializes instead of fanning out.
const defaultHistThreshold = 100_000_000

// DefaultRegistry returns a Registry with the full dtype table, default
// thread tiers and a nop logger.
func DefaultRegistry() *Registry {
	makers := map[DType]bucketMaker{}
	for _, dt := range []DType{DTypeFloat64, DTypeFloat32, DTypeInt64, DTypeInt32, DTypeBool, DTypeString, DTypeIndexPair} {
		dt := dt
		makers[dt] = func(dim Dim, n int, unit Unit, withVariances bool) (*Variable, error) {
			return NewVariable(dt, sizes1D(dim, n), unit, withVariances)
		}
	}
	return &Registry{
		log:           logger.NopLogger,
		makers:        makers,
		threadTiers:   defaultThreadTiers,
		histThreshold: defaultHistThreshold,
	}
}

// WithLogger returns a copy of r using l.
func (r *Registry) WithLogger(l logger.Logger) *Registry {
	out := *r
	out.log = l
	return &out
}

// WithThreadTiers returns a copy of r using the given tiers, highest row
// count first.
func (r *Registry) WithThreadTiers(tiers []ThreadTier) *Registry {
	out := *r
	out.threadTiers = tiers
	return &out
}

// WithHistogramThreshold returns a copy of r using the given element-count
// bound on Histogram's parallel accumulators.
func (r *Registry) WithHistogramThreshold(n int) *Registry {
	out := *r
	out.histThreshold = n
	return &out
}

// makeColumn allocates an output column like src but with n rows along dim.
func (r *Registry) makeColumn(src *Variable, dim Dim, n int) (*Variable, error) {
	maker, ok := r.makers[src.DType()]
	if !ok {
		return nil, errors.Newf(errors.ErrVariable, "no bucket maker registered for dtype %s", src.DType())
	}
	return maker(dim, n, src.Unit(), src.HasVariances())
}

// defaultRegistry backs the package-level convenience functions. It is
// constructed once at init and never mutated.
var defaultRegistry = DefaultRegistry()
