// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"math"

	"golang.org/x/exp/slices"

	"github.com/raggeddata/ragged/errors"
)

// BinArgs is the caller-supplied binning specification: a sequence of
// per-axis operations. Each Edges entry adds a dimension of numeric bins,
// each Groups entry a dimension of categorical groups; Erase merges all
// contributions along an existing bin dimension and Join collapses an
// existing bin dimension to a single bin spanning its coordinate's range.
type BinArgs struct {
	Edges  []*Variable
	Groups []*Variable
	Erase  []Dim
	Join   []Dim
}

func (a BinArgs) empty() bool {
	return len(a.Edges)+len(a.Groups)+len(a.Erase)+len(a.Join) == 0
}

type actionKind int

const (
	actionGroup actionKind = iota
	actionBin
	actionExisting
	actionJoin
	actionErase
)

// axisAction is one resolved per-axis operation of a bin plan. Group and bin
// actions are event-sourced (they read a per-event coordinate); existing and
// join actions are bin-sourced (they read the input bin's position).
type axisAction struct {
	kind     actionKind
	dim      Dim
	nbin     int
	edges    []float64 // bin: promoted edge values
	linspace bool
	grouper  *groupIndexer // group
}

// binPlan is the ordered, validated action plan for one Bin/Rebin call. The
// output dimension order is: group dims, then bin dims, then surviving input
// bin dims (the "repeat pass" for dims not explicitly listed).
type binPlan struct {
	actions   []axisAction
	out       Sizes
	outCoords *Dict // new bin-level coords keyed by dim
	rebinned  map[Dim]bool
	erased    map[Dim]bool
	joined    map[Dim]bool
	// Event coords consumed by grouping; proactively dropped from the
	// retained buffer so later operations stop paying for them.
	groupedEventCoords []string
}

// eventCoord fetches and checks the per-event coordinate for dim: 1-D over
// the row dimension, not a bin-edge column.
func eventCoord(coords *Dict, rowDim, dim Dim, rows int, what string) (*Variable, error) {
	v, ok := coords.GetDim(dim)
	if !ok {
		return nil, errors.Newf(errors.ErrBinEdge,
			"event coordinate %s required for %s is missing", dim, what)
	}
	if v.sizes.Rank() != 1 {
		return nil, errors.Newf(errors.ErrDimension,
			"coordinate %s has rank %d; per-event %s needs a 1-D coordinate", dim, v.sizes.Rank(), what)
	}
	if v.sizes.dims[0] != rowDim {
		return nil, errors.Newf(errors.ErrDimension,
			"coordinate %s depends on %s, not on the row dimension %s", dim, v.sizes.dims[0], rowDim)
	}
	if v.Volume() == rows+1 {
		return nil, errors.Newf(errors.ErrBinEdge,
			"coordinate %s holds bin edges where event values are expected", dim)
	}
	if v.Volume() != rows {
		return nil, errors.Newf(errors.ErrDimension,
			"coordinate %s has %d elements for %d rows", dim, v.Volume(), rows)
	}
	return v, nil
}

// newBinPlan validates args against the event coordinates and builds the
// ordered action plan. binDims/binSizes describe existing bin dimensions of
// already-bucketed input (both empty for plain event input).
func newBinPlan(coords *Dict, rowDim Dim, rows int, binSizes Sizes, binCoords *Dict, args BinArgs) (*binPlan, error) {
	if args.empty() {
		return nil, errors.New(errors.ErrInvalidArgument, "bin requires at least one of edges, groups, erase or join")
	}
	p := &binPlan{
		outCoords: NewDict(),
		rebinned:  map[Dim]bool{},
		erased:    map[Dim]bool{},
		joined:    map[Dim]bool{},
	}
	seen := map[Dim]bool{}
	claim := func(d Dim) error {
		if seen[d] {
			return errors.Newf(errors.ErrDimension, "dimension %s named by more than one action", d)
		}
		seen[d] = true
		return nil
	}
	for _, d := range args.Erase {
		if err := claim(d); err != nil {
			return nil, err
		}
		if !binSizes.Contains(d) {
			return nil, errors.Newf(errors.ErrDimension, "cannot erase %s: not a bin dimension", d)
		}
		p.erased[d] = true
	}
	for _, d := range args.Join {
		if err := claim(d); err != nil {
			return nil, err
		}
		if !binSizes.Contains(d) {
			return nil, errors.Newf(errors.ErrDimension, "cannot join %s: not a bin dimension", d)
		}
		p.joined[d] = true
	}

	// Grouping actions first.
	for _, groups := range args.Groups {
		if groups == nil || groups.sizes.Rank() != 1 {
			return nil, errors.New(errors.ErrInvalidArgument, "group values must be a 1-D variable")
		}
		d := groups.sizes.dims[0]
		if p.erased[d] || p.joined[d] {
			return nil, errors.Newf(errors.ErrDimension, "cannot simultaneously erase and rebin dimension %s", d)
		}
		if err := claim(d); err != nil {
			return nil, err
		}
		coord, err := eventCoord(coords, rowDim, d, rows, "grouping")
		if err != nil {
			return nil, err
		}
		grouper, err := newGroupIndexer(coord, groups)
		if err != nil {
			return nil, err
		}
		p.actions = append(p.actions, axisAction{
			kind:    actionGroup,
			dim:     d,
			nbin:    groups.Volume(),
			grouper: grouper,
		})
		p.out.Set(d, groups.Volume())
		p.outCoords.SetDim(d, groups.share())
		p.rebinned[d] = true
		p.groupedEventCoords = append(p.groupedEventCoords, string(d))
	}

	// Then binning actions.
	for _, edgesVar := range args.Edges {
		if edgesVar == nil || edgesVar.sizes.Rank() != 1 {
			return nil, errors.New(errors.ErrInvalidArgument, "bin edges must be a 1-D variable")
		}
		d := edgesVar.sizes.dims[0]
		if p.erased[d] || p.joined[d] {
			return nil, errors.Newf(errors.ErrDimension, "cannot simultaneously erase and rebin dimension %s", d)
		}
		if err := claim(d); err != nil {
			return nil, err
		}
		coord, err := eventCoord(coords, rowDim, d, rows, "binning")
		if err != nil {
			return nil, err
		}
		if coord.Unit() != edgesVar.Unit() {
			return nil, errors.Newf(errors.ErrBinEdge,
				"dimension %s: coordinate unit %s does not match edge unit %s", d, coord.Unit(), edgesVar.Unit())
		}
		if _, err := promoteDType(coord.DType(), edgesVar.DType()); err != nil {
			return nil, errors.Wrapf(err, "dimension %s", d)
		}
		edges, err := coordAsFloat64s(edgesVar)
		if err != nil {
			return nil, errors.Wrapf(err, "dimension %s", d)
		}
		if len(edges) < 2 {
			return nil, errors.Newf(errors.ErrBinEdge, "dimension %s: not enough bin edges", d)
		}
		if !sortedStrictlyAscending(edges) {
			return nil, errors.Newf(errors.ErrBinEdge, "dimension %s: bin edges must be sorted", d)
		}
		p.actions = append(p.actions, axisAction{
			kind:     actionBin,
			dim:      d,
			nbin:     len(edges) - 1,
			edges:    edges,
			linspace: isLinspace(edges),
		})
		p.out.Set(d, len(edges)-1)
		p.outCoords.SetDim(d, edgesVar.share())
		p.rebinned[d] = true
	}

	// Repeat pass: existing bin dims not explicitly listed survive, joined
	// dims collapse to one synthetic bin, erased dims vanish.
	for _, d := range binSizes.dims {
		if p.rebinned[d] || p.erased[d] {
			continue
		}
		if p.joined[d] {
			lo, hi, err := coordRange(binCoords, d)
			if err != nil {
				return nil, err
			}
			p.actions = append(p.actions, axisAction{kind: actionJoin, dim: d, nbin: 1})
			p.out.Set(d, 1)
			p.outCoords.SetDim(d, FromFloat64s(d, []float64{lo, hi}, coordUnit(binCoords, d)))
			continue
		}
		p.actions = append(p.actions, axisAction{kind: actionExisting, dim: d, nbin: binSizes.at(d)})
		p.out.Set(d, binSizes.at(d))
	}
	return p, nil
}

// needsEvents reports whether any action has to read per-event coordinates.
func (p *binPlan) needsEvents() bool {
	for _, a := range p.actions {
		if a.kind == actionGroup || a.kind == actionBin {
			return true
		}
	}
	return false
}

// coordRange returns [min,max] of a bin-level coordinate for a joined dim.
func coordRange(binCoords *Dict, d Dim) (float64, float64, error) {
	v, ok := binCoords.GetDim(d)
	if !ok {
		return 0, 0, errors.Newf(errors.ErrBinEdge, "cannot join %s: no coordinate", d)
	}
	xs, err := coordAsFloat64s(v)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "dimension %s", d)
	}
	if len(xs) == 0 {
		return 0, 0, errors.Newf(errors.ErrBinEdge, "cannot join %s: empty coordinate", d)
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi, nil
}

func coordUnit(binCoords *Dict, d Dim) Unit {
	if v, ok := binCoords.GetDim(d); ok {
		return v.Unit()
	}
	return UnitNone
}

// coordAsFloat64s converts a numeric coordinate to float64 values,
// holding the promotion rules of promoteDType. float64 input aliases the
// store; other dtypes allocate.
func coordAsFloat64s(v *Variable) ([]float64, error) {
	switch v.DType() {
	case DTypeFloat64:
		return v.Float64s(), nil
	case DTypeFloat32:
		src := v.Float32s()
		out := make([]float64, len(src))
		for i, x := range src {
			out[i] = float64(x)
		}
		return out, nil
	case DTypeInt64:
		src := v.Int64s()
		out := make([]float64, len(src))
		for i, x := range src {
			out[i] = float64(x)
		}
		return out, nil
	case DTypeInt32:
		src := v.Int32s()
		out := make([]float64, len(src))
		for i, x := range src {
			out[i] = float64(x)
		}
		return out, nil
	}
	return nil, errors.Newf(errors.ErrBinEdge, "dtype %s is not numeric", v.DType())
}

func sortedStrictlyAscending(xs []float64) bool {
	for i := 1; i < len(xs); i++ {
		if !(xs[i] > xs[i-1]) {
			return false
		}
	}
	return true
}

// isLinspace reports whether the spacing between all adjacent edges is
// bitwise identical, enabling O(1) index arithmetic instead of binary
// search. Edges that are merely close to uniform take the search path; the
// two strategies agree on every value.
func isLinspace(edges []float64) bool {
	if len(edges) < 2 {
		return false
	}
	step := edges[1] - edges[0]
	for i := 2; i < len(edges); i++ {
		if edges[i]-edges[i-1] != step {
			return false
		}
	}
	return true
}

// groupIndexer maps per-event coordinate values to group indices for one
// grouping action. The kernel is resolved once per dtype pair, then called
// per event.
type groupIndexer struct {
	kernel func(row int) int64
}

func newGroupIndexer(coord, groups *Variable) (*groupIndexer, error) {
	cd, gd := coord.DType(), groups.DType()
	switch {
	case cd == DTypeString && gd == DTypeString:
		m := make(map[string]int64, groups.Volume())
		for i, s := range groups.Strings() {
			m[s] = int64(i)
		}
		vals := coord.Strings()
		return &groupIndexer{kernel: func(row int) int64 { return lookupOr(m, vals[row]) }}, nil
	case cd == DTypeBool && gd == DTypeBool:
		m := make(map[bool]int64, groups.Volume())
		for i, b := range groups.Bools() {
			m[b] = int64(i)
		}
		vals := coord.Bools()
		return &groupIndexer{kernel: func(row int) int64 { return lookupOr(m, vals[row]) }}, nil
	case (cd == DTypeInt64 || cd == DTypeInt32) && (gd == DTypeInt64 || gd == DTypeInt32):
		gs, err := coordAsFloat64s(groups)
		if err != nil {
			return nil, err
		}
		m := make(map[int64]int64, len(gs))
		for i, g := range gs {
			m[int64(g)] = int64(i)
		}
		if cd == DTypeInt64 {
			vals := coord.Int64s()
			return &groupIndexer{kernel: func(row int) int64 { return lookupOr(m, vals[row]) }}, nil
		}
		vals := coord.Int32s()
		return &groupIndexer{kernel: func(row int) int64 { return lookupOr(m, int64(vals[row])) }}, nil
	case cd.IsNumeric() && gd.IsNumeric():
		gs, err := coordAsFloat64s(groups)
		if err != nil {
			return nil, err
		}
		m := make(map[float64]int64, len(gs))
		nanIdx := int64(-1)
		for i, g := range gs {
			if math.IsNaN(g) {
				nanIdx = int64(i)
				continue
			}
			m[g] = int64(i)
		}
		xs, err := coordAsFloat64s(coord)
		if err != nil {
			return nil, err
		}
		return &groupIndexer{kernel: func(row int) int64 {
			x := xs[row]
			if math.IsNaN(x) {
				return nanIdx
			}
			return lookupOr(m, x)
		}}, nil
	}
	return nil, errors.Newf(errors.ErrBinEdge,
		"cannot group %s coordinate by %s group values", cd, gd)
}

func lookupOr[K comparable](m map[K]int64, k K) int64 {
	if i, ok := m[k]; ok {
		return i
	}
	return -1
}

// UniqueGroups returns the distinct values of the event coordinate for dim,
// sorted ascending. Floating-point NaN values compare equal to each other
// and sort after all other values. The result can be passed as a Groups
// entry to Bin or used directly by GroupBy.
func UniqueGroups(coords *Dict, rowDim, dim Dim, rows int) (*Variable, error) {
	coord, err := eventCoord(coords, rowDim, dim, rows, "grouping")
	if err != nil {
		return nil, err
	}
	switch coord.DType() {
	case DTypeString:
		u := uniqueSorted(coord.Strings())
		return FromStrings(dim, u), nil
	case DTypeBool:
		var hasF, hasT bool
		for _, b := range coord.Bools() {
			if b {
				hasT = true
			} else {
				hasF = true
			}
		}
		u := []bool{}
		if hasF {
			u = append(u, false)
		}
		if hasT {
			u = append(u, true)
		}
		return FromBools(dim, u), nil
	case DTypeInt64:
		return FromInt64s(dim, uniqueSorted(coord.Int64s()), coord.Unit()), nil
	case DTypeInt32:
		return FromInt32s(dim, uniqueSorted(coord.Int32s()), coord.Unit()), nil
	case DTypeFloat64, DTypeFloat32:
		xs, err := coordAsFloat64s(coord)
		if err != nil {
			return nil, err
		}
		u := make([]float64, 0, len(xs))
		hasNaN := false
		for _, x := range xs {
			if math.IsNaN(x) {
				hasNaN = true
				continue
			}
			u = append(u, x)
		}
		slices.Sort(u)
		u = slices.Compact(u)
		if hasNaN {
			u = append(u, math.NaN())
		}
		return FromFloat64s(dim, u, coord.Unit()), nil
	}
	return nil, errors.Newf(errors.ErrBinEdge, "cannot group by %s coordinate", coord.DType())
}

func uniqueSorted[T interface {
	~int32 | ~int64 | ~string
}](vals []T) []T {
	u := append([]T(nil), vals...)
	slices.Sort(u)
	return slices.Compact(u)
}
