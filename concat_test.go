// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0
package ragged

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raggeddata/ragged/errors"
)

func TestConcatenateAppendsBinWise(t *testing.T) {
	edges := []float64{0, 1, 2}
	a := binned(t, []float64{1, 2}, []float64{0.5, 1.5}, edges)
	b := binned(t, []float64{3, 4, 5}, []float64{1.1, 0.1, 0.2}, edges)

	out, err := Concatenate(a, b)
	require.NoError(t, err)

	assert.Equal(t, 2, out.NumBins())
	assert.Equal(t, []float64{1, 4, 5}, cellData(t, out, 0))
	assert.Equal(t, []float64{2, 3}, cellData(t, out, 1))
	assert.Equal(t, int64(5), out.EventCount())

	// Bin coordinates carry over from the first operand.
	x, ok := out.Coords().Get("x")
	require.True(t, ok)
	assert.Equal(t, edges, x.Float64s())

	// Event coordinates interleave the same way as the data.
	cell, err := out.Cell(0)
	require.NoError(t, err)
	cx, ok := cell.Coords().Get("x")
	require.True(t, ok)
	assert.Equal(t, []float64{0.5, 0.1, 0.2}, cx.Float64s())
}

func TestConcatenateEmptyBins(t *testing.T) {
	edges := []float64{0, 1, 2}
	a := binned(t, []float64{1}, []float64{0.5}, edges) // bin 1 empty
	b := binned(t, []float64{2}, []float64{1.5}, edges) // bin 0 empty

	out, err := Concatenate(a, b)
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, cellData(t, out, 0))
	assert.Equal(t, []float64{2}, cellData(t, out, 1))
}

func TestConcatenateMismatchedBinCoords(t *testing.T) {
	a := binned(t, []float64{1}, []float64{0.5}, []float64{0, 1, 2})
	b := binned(t, []float64{2}, []float64{0.5}, []float64{0, 0.5, 2})

	_, err := Concatenate(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCoordMismatch))
	// The coordinate-mismatch code refines the variable error family.
	assert.True(t, errors.Is(err, errors.ErrVariable))
}

func TestConcatenateMismatchedShapes(t *testing.T) {
	a := binned(t, []float64{1}, []float64{0.5}, []float64{0, 1, 2})
	b := binned(t, []float64{2}, []float64{0.5}, []float64{0, 1})

	_, err := Concatenate(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrVariable))
}

func TestConcatenateMismatchedColumns(t *testing.T) {
	edges := []float64{0, 1}
	a := binned(t, []float64{1}, []float64{0.5}, edges)

	// Same partition, but b's buffer carries an extra event coordinate.
	coords := DictOf(
		"x", FromFloat64s("row", []float64{0.5}, UnitNone),
		"extra", FromFloat64s("row", []float64{7}, UnitNone),
	)
	tbl, err := NewTable(FromFloat64s("row", []float64{2}, UnitCounts), coords, nil)
	require.NoError(t, err)
	b, err := Bin(tbl, BinArgs{Edges: []*Variable{edges1D("x", edges)}})
	require.NoError(t, err)

	_, err = Concatenate(b, a)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrVariable))
}

// Mirror of the extra-column case with the operands swapped: the extra
// column sits in the second operand and must not be dropped silently.
func TestConcatenateMissingColumnInFirstOperand(t *testing.T) {
	edges := []float64{0, 1}
	a := binned(t, []float64{1}, []float64{0.5}, edges)

	coords := DictOf(
		"x", FromFloat64s("row", []float64{0.5}, UnitNone),
		"extra", FromFloat64s("row", []float64{7}, UnitNone),
	)
	tbl, err := NewTable(FromFloat64s("row", []float64{2}, UnitCounts), coords, nil)
	require.NoError(t, err)
	b, err := Bin(tbl, BinArgs{Edges: []*Variable{edges1D("x", edges)}})
	require.NoError(t, err)

	_, err = Concatenate(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrVariable))
}

func TestConcatenateMismatchedUnits(t *testing.T) {
	edges := []float64{0, 1}
	a := binned(t, []float64{1}, []float64{0.5}, edges)

	coords := DictOf("x", FromFloat64s("row", []float64{0.5}, UnitNone))
	tbl, err := NewTable(FromFloat64s("row", []float64{2}, "kg"), coords, nil)
	require.NoError(t, err)
	b, err := Bin(tbl, BinArgs{Edges: []*Variable{edges1D("x", edges)}})
	require.NoError(t, err)

	_, err = Concatenate(a, b)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrVariable))
}

func TestConcatenateCopiesBinMasks(t *testing.T) {
	edges := []float64{0, 1}
	a := binned(t, []float64{1}, []float64{0.5}, edges)
	b := binned(t, []float64{2}, []float64{0.5}, edges)
	a.Masks().Set("m", FromBools("x", []bool{false}))
	b.Masks().Set("m", FromBools("x", []bool{false}))

	out, err := Concatenate(a, b)
	require.NoError(t, err)
	m, ok := out.Masks().Get("m")
	require.True(t, ok)
	m.Bools()[0] = true
	orig, _ := a.Masks().Get("m")
	assert.False(t, orig.Bools()[0], "output masks must be independent copies")
}
