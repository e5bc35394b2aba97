// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"github.com/raggeddata/ragged/errors"
)

// Metadata propagation: which input coordinate/mask/attribute columns
// survive a bin call, and in which scope.
//
//   - Bin-level columns whose dims are untouched by the call are lifted to
//     the output by reference (masks by one deep copy, since bucket masks on
//     the output must be independently mutable).
//   - Columns intersecting a rebinned/erased/joined dim are dropped; the new
//     edges/groups coordinates produced by the action plan replace them.
//   - Masks intersecting an affected dim are applied first (their rows or
//     bins dropped from the result), then discarded.

// affected returns the set of dims whose layout this plan changes.
func (p *binPlan) affected() map[Dim]bool {
	out := map[Dim]bool{}
	for d := range p.rebinned {
		out[d] = true
	}
	for d := range p.erased {
		out[d] = true
	}
	for d := range p.joined {
		out[d] = true
	}
	return out
}

func dimsIntersect(sizes Sizes, set map[Dim]bool) bool {
	for _, d := range sizes.dims {
		if set[d] {
			return true
		}
	}
	return false
}

// liftBinMetadata assembles the output's bin-level dictionaries: the plan's
// new edges/groups coordinates, plus every input bin-level column whose dims
// the plan leaves alone.
func liftBinMetadata(p *binPlan, inCoords, inMasks *Dict, out *Buckets) {
	affected := p.affected()
	_ = p.outCoords.Each(func(k string, v *Variable) error {
		out.coords.Set(k, v)
		return nil
	})
	_ = inCoords.Each(func(k string, v *Variable) error {
		if out.coords.Contains(k) || dimsIntersect(v.sizes, affected) {
			return nil
		}
		out.coords.Set(k, v.share())
		return nil
	})
	_ = inMasks.Each(func(k string, v *Variable) error {
		if dimsIntersect(v.sizes, affected) {
			// Applied during target building, now discarded.
			return nil
		}
		out.masks.Set(k, v.DeepCopy())
		return nil
	})
}

// binLevelMask ORs all input bin-level masks that depend on an affected dim
// into one per-input-bin drop flag, broadcast to the input bin shape.
func binLevelMask(inMasks *Dict, affected map[Dim]bool, binSizes Sizes) ([]bool, error) {
	var combined []bool
	err := inMasks.Each(func(key string, v *Variable) error {
		if !dimsIntersect(v.sizes, affected) {
			return nil
		}
		bc, err := v.Broadcast(binSizes)
		if err != nil {
			return errors.Wrapf(err, "mask %s", key)
		}
		if combined == nil {
			combined = make([]bool, binSizes.Volume())
		}
		for i, m := range bc.Bools() {
			combined[i] = combined[i] || m
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return combined, nil
}

// checkCoordConflicts rejects kept bin-level coordinates that straddle an
// affected dimension: re-partitioning the outer dim re-flattens everything
// inside it, so a 2-D coordinate over a surviving dim cannot be carried
// along. Joining the surviving dim collapses the conflict.
func checkCoordConflicts(p *binPlan, binCoords *Dict) error {
	affected := p.affected()
	return binCoords.Each(func(k string, v *Variable) error {
		if v.sizes.Rank() < 2 || !dimsIntersect(v.sizes, affected) {
			return nil
		}
		for _, d := range v.sizes.dims {
			if affected[d] {
				continue
			}
			if p.out.Contains(d) {
				return errors.Newf(errors.ErrDimension,
					"2-D coordinate %s conflicts with rebinning an outer dimension; erase or join %s", k, d)
			}
		}
		return nil
	})
}
