// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import "fmt"

// Dict is the insertion-order-preserving mapping used for coordinate, mask
// and attribute dictionaries. Coordinates are keyed by their dimension label,
// masks by a free-form name.
//
// Structural mutation (inserting a new key or deleting one) while an Each
// iteration is running panics; replacing the value of an existing key is
// allowed.
type Dict struct {
	keys      []string
	vals      map[string]*Variable
	iterating int
}

// NewDict returns an empty Dict.
func NewDict() *Dict {
	return &Dict{vals: map[string]*Variable{}}
}

// DictOf builds a Dict from alternating key/value pairs in order.
func DictOf(pairs ...interface{}) *Dict {
	d := NewDict()
	for i := 0; i+1 < len(pairs); i += 2 {
		switch k := pairs[i].(type) {
		case string:
			d.Set(k, pairs[i+1].(*Variable))
		case Dim:
			d.Set(string(k), pairs[i+1].(*Variable))
		default:
			panic(fmt.Sprintf("ragged: bad dict key type %T", pairs[i]))
		}
	}
	return d
}

// Len returns the number of entries.
func (d *Dict) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Contains reports whether key is present.
func (d *Dict) Contains(key string) bool {
	if d == nil {
		return false
	}
	_, ok := d.vals[key]
	return ok
}

// Get returns the value for key.
func (d *Dict) Get(key string) (*Variable, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.vals[key]
	return v, ok
}

// GetDim is Get for coordinate dictionaries keyed by dimension.
func (d *Dict) GetDim(dim Dim) (*Variable, bool) {
	return d.Get(string(dim))
}

// Set inserts or replaces the value for key. Inserting a new key during
// iteration panics.
func (d *Dict) Set(key string, v *Variable) {
	if _, ok := d.vals[key]; !ok {
		if d.iterating > 0 {
			panic(fmt.Sprintf("ragged: dict insert of %q during iteration", key))
		}
		d.keys = append(d.keys, key)
	}
	d.vals[key] = v
}

// SetDim is Set for coordinate dictionaries keyed by dimension.
func (d *Dict) SetDim(dim Dim, v *Variable) {
	d.Set(string(dim), v)
}

// Del removes key if present. Deleting during iteration panics.
func (d *Dict) Del(key string) {
	if _, ok := d.vals[key]; !ok {
		return
	}
	if d.iterating > 0 {
		panic(fmt.Sprintf("ragged: dict delete of %q during iteration", key))
	}
	delete(d.vals, key)
	for i, k := range d.keys {
		if k == key {
			d.keys = append(d.keys[:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Dict) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Each calls fn for every entry in insertion order, stopping at the first
// error. Structural mutation of d inside fn panics.
func (d *Dict) Each(fn func(key string, v *Variable) error) error {
	if d == nil {
		return nil
	}
	d.iterating++
	defer func() { d.iterating-- }()
	for _, k := range d.keys {
		if err := fn(k, d.vals[k]); err != nil {
			return err
		}
	}
	return nil
}

// Copy returns a Dict with the same entries; values are shared by reference.
func (d *Dict) Copy() *Dict {
	out := NewDict()
	if d == nil {
		return out
	}
	for _, k := range d.keys {
		out.Set(k, d.vals[k])
	}
	return out
}

// Equal reports whether d and o hold equal variables under equal keys in the
// same order.
func (d *Dict) Equal(o *Dict) bool {
	if d.Len() != o.Len() {
		return false
	}
	if d == nil || o == nil {
		return true
	}
	for i, k := range d.keys {
		if o.keys[i] != k {
			return false
		}
		if !d.vals[k].Equal(o.vals[k]) {
			return false
		}
	}
	return true
}
