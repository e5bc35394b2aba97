// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package errors_test

import (
	"fmt"
	"testing"

	"github.com/raggeddata/ragged/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrors(t *testing.T) {
	t.Run("Is", func(t *testing.T) {
		uncoded := errors.New(errors.ErrUncoded, "uncoded error")
		edge := errors.Newf(errors.ErrBinEdge, "dimension %s: not enough bin edges", "x")
		dim := errors.New(errors.ErrDimension, "dimension y not found")
		binned := errors.New(errors.ErrBinnedData, "only 1-D data supported")

		tests := []struct {
			err    error
			target errors.Code
			exp    bool
		}{
			{
				err:    uncoded,
				target: errors.ErrUncoded,
				exp:    true,
			},
			{
				err:    uncoded,
				target: errors.ErrBinEdge,
				exp:    false,
			},
			{
				err:    edge,
				target: errors.ErrBinEdge,
				exp:    true,
			},
			{
				err:    edge,
				target: errors.ErrDimension,
				exp:    false,
			},
			{
				err:    errors.Wrap(dim, "with message"),
				target: errors.ErrDimension,
				exp:    true,
			},
			{
				// BinnedData refines Dimension.
				err:    binned,
				target: errors.ErrDimension,
				exp:    true,
			},
			{
				err:    dim,
				target: errors.ErrBinnedData,
				exp:    false,
			},
			{
				err:    errors.New(errors.ErrCoordMismatch, "mismatched edges"),
				target: errors.ErrVariable,
				exp:    true,
			},
		}

		for i, test := range tests {
			t.Run(fmt.Sprintf("test-%d", i), func(t *testing.T) {
				got := errors.Is(test.err, test.target)
				assert.Equal(t, test.exp, got)
			})
		}
	})

	t.Run("Message", func(t *testing.T) {
		err := errors.Newf(errors.ErrBinEdge, "dimension %s: bin edges must be sorted", "time")
		assert.Equal(t, "dimension time: bin edges must be sorted", err.Error())
	})
}
